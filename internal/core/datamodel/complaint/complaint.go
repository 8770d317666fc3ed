package complaint

import "time"

type Complaint struct {
	ID          int64      `gorm:"primaryKey"`
	ComplaintID string     `gorm:"column:complaint_id;uniqueIndex;not null"`
	Title       string     `gorm:"column:title;not null"`
	Category    string     `gorm:"column:category;not null;index"`
	Description string     `gorm:"column:description;not null"`
	Location    string     `gorm:"column:location;not null"`
	Status      string     `gorm:"column:status;not null;index"`
	Priority    string     `gorm:"column:priority;not null"`
	ImagePath   *string    `gorm:"column:image_path"`
	UserID      int64      `gorm:"column:user_id;not null;index"`
	AssignedTo  *int64     `gorm:"column:assigned_to"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
}

func (Complaint) TableName() string {
	return "complaints"
}

// Comment is one timeline entry. ComplaintID references Complaint.ID, not the public identifier.
type Comment struct {
	ID          int64     `gorm:"primaryKey"`
	ComplaintID int64     `gorm:"column:complaint_id;not null;index"`
	UserID      int64     `gorm:"column:user_id;not null"`
	Message     string    `gorm:"column:message;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (Comment) TableName() string {
	return "comments"
}

// ComplaintSequence holds the last issued identifier sequence per calendar year.
type ComplaintSequence struct {
	Year      int   `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastValue int64 `gorm:"column:last_value;not null"`
}

func (ComplaintSequence) TableName() string {
	return "complaint_sequences"
}

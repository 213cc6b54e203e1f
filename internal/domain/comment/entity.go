package comment

import "time"

// Comment is a note attached to a subject (task, bug, ...) of a project.
// Rows are written once and never updated.
type Comment struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Comment     string    `gorm:"column:comment;type:text" json:"comment"`
	CreatedTime time.Time `gorm:"column:created_time" json:"created_time"`
	CreatedUser string    `gorm:"column:created_user;size:255" json:"created_user"`
	SAccountID  int64     `gorm:"column:saccount_id;index:idx_comments_subject" json:"saccount_id"`
	Type        string    `gorm:"column:type;size:64;index:idx_comments_subject" json:"type"`
	TypeID      string    `gorm:"column:type_id;size:100;index:idx_comments_subject" json:"type_id"`
	ExtraTypeID *int64    `gorm:"column:extra_type_id" json:"extra_type_id,omitempty"`

	// BodyHTML is Comment made safe for HTML display; never stored.
	BodyHTML string `gorm:"-" json:"body_html"`
}

func (Comment) TableName() string { return "comments" }

package resource

import "time"

// Resource is one stored blob. Path is the logical location inside the
// account's tree and is unique per account.
type Resource struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID   int64     `gorm:"column:account_id;uniqueIndex:idx_resources_account_path" json:"account_id"`
	Path        string    `gorm:"column:path;size:1024;uniqueIndex:idx_resources_account_path" json:"path"`
	Name        string    `gorm:"column:name;size:255" json:"name"`
	MimeType    string    `gorm:"column:mime_type;size:127" json:"mime_type"`
	Size        int64     `gorm:"column:size" json:"size"`
	Checksum    string    `gorm:"column:checksum;size:64" json:"checksum"`
	CreatedUser string    `gorm:"column:created_user;size:255" json:"created_user"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Resource) TableName() string { return "resources" }

// Content addresses a resource to be written.
type Content struct {
	Path string
	Name string
}

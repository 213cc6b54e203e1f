// Package attachment computes where comment attachments live and pushes
// them to resource storage, downscaling images on the way.
package attachment

import (
	"fmt"
	"strings"
	"time"

	"projectcomments/internal/domain/resource"
)

// Subject types a project comment can be attached to.
const (
	TypeTask      = "Project-Task"
	TypeBug       = "Project-Bug"
	TypeRisk      = "Project-Risk"
	TypeProblem   = "Project-Problem"
	TypeMilestone = "Project-Milestone"
	TypeMessage   = "Project-Message"
	TypeComponent = "Project-Component"
	TypeVersion   = "Project-Version"
)

// NamePrefix starts every generated attachment name.
const NamePrefix = "attachment-"

var subjectFolders = map[string]string{
	TypeTask:      "task",
	TypeBug:       "bug",
	TypeRisk:      "risk",
	TypeProblem:   "problem",
	TypeMilestone: "milestone",
	TypeMessage:   "message",
	TypeComponent: "component",
	TypeVersion:   "version",
}

// KnownType reports whether comments on typ can carry attachments.
func KnownType(typ string) bool {
	_, ok := subjectFolders[typ]
	return ok
}

// CommentAttachmentPath returns the storage folder of one comment's
// attachments, or "" for subject types without attachment storage.
func CommentAttachmentPath(typ string, accountID, projectID int64, typeID string, commentID int64) string {
	folder, ok := subjectFolders[typ]
	if !ok || typeID == "" {
		return ""
	}
	return fmt.Sprintf("%d/project/%d/%s/%s/comment/%d", accountID, projectID, folder, typeID, commentID)
}

// ConstructContent addresses fileName inside attachmentPath.
func ConstructContent(fileName, attachmentPath string) resource.Content {
	return resource.Content{
		Path: strings.TrimSuffix(attachmentPath, "/") + "/" + fileName,
		Name: fileName,
	}
}

// GenerateName replaces a file name that has an extension with
// NamePrefix + unix millis, keeping the extension. Names without an
// extension, or starting with their only dot, are returned unchanged.
func GenerateName(original string, now time.Time) string {
	index := strings.LastIndex(original, ".")
	if index <= 0 {
		return original
	}
	return fmt.Sprintf("%s%d.%s", NamePrefix, now.UnixMilli(), original[index+1:])
}

// Ext returns the lower-cased extension without the dot, or "".
func Ext(fileName string) string {
	index := strings.LastIndex(fileName, ".")
	if index <= 0 {
		return ""
	}
	return strings.ToLower(fileName[index+1:])
}

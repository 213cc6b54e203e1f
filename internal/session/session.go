// Package session carries the authenticated caller through the request path.
package session

import (
	"errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const (
	ctxUserID    = "user_id"
	ctxUsername  = "username"
	ctxAccountID = "account_id"
	ctxLocale    = "locale"
)

var ErrNoSession = errors.New("no authenticated session")

// Context identifies who acts and in which account and project.
type Context struct {
	UserID    int64
	Username  string
	AccountID int64
	ProjectID int64
	Locale    language.Tag
}

// Set stores the identity fields on the gin context.
func Set(c *gin.Context, userID int64, username string, accountID int64) {
	c.Set(ctxUserID, userID)
	c.Set(ctxUsername, username)
	c.Set(ctxAccountID, accountID)
}

// SetLocale stores the negotiated locale.
func SetLocale(c *gin.Context, tag language.Tag) {
	c.Set(ctxLocale, tag)
}

// From reads the session stored by the auth middleware.
func From(c *gin.Context) (Context, error) {
	username := c.GetString(ctxUsername)
	if username == "" {
		return Context{}, ErrNoSession
	}
	s := Context{
		UserID:    c.GetInt64(ctxUserID),
		Username:  username,
		AccountID: c.GetInt64(ctxAccountID),
		Locale:    language.English,
	}
	if v, ok := c.Get(ctxLocale); ok {
		if tag, ok := v.(language.Tag); ok {
			s.Locale = tag
		}
	}
	return s, nil
}

package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	userKeyFormat        = "user:%d"
	libraryBookKeyFormat = "library:book:%d"
	libraryListKeyFormat = "library:list:%s:%s"
	libraryListPattern   = "library:list:*"
	revokedTokenFormat   = "revoked:jti:%s"
)

const (
	UserTTL        = 5 * time.Minute
	LibraryBookTTL = 30 * time.Minute
	LibraryListTTL = 5 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(userKeyFormat, userID)
}

func LibraryBookKey(bookID uint) string {
	return fmt.Sprintf(libraryBookKeyFormat, bookID)
}

// LibraryListKey keys a filtered library listing. An empty category or
// search is stored as "-".
func LibraryListKey(category, search string) string {
	if category == "" {
		category = "-"
	}
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		search = "-"
	}
	return fmt.Sprintf(libraryListKeyFormat, category, search)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(revokedTokenFormat, jti)
}

// keyFamily returns the first key segment for metric labels.
func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateLibrary drops one book and every cached listing.
func InvalidateLibrary(ctx context.Context, bookID uint) {
	if bookID != 0 {
		Invalidate(ctx, LibraryBookKey(bookID))
	}
	InvalidatePattern(ctx, libraryListPattern)
}

// RevokeToken blacklists a token id until its natural expiry.
func RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	c := GetClient()
	if c == nil || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return c.Set(ctx, RevokedTokenKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti was revoked. Without a cache no token
// is considered revoked.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	c := GetClient()
	if c == nil || jti == "" {
		return false, nil
	}
	n, err := c.Exists(ctx, RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

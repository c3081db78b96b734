package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%s"
	BlogKeyPrefix      = "blog:%s"
	BlogListKey        = "blogs:all"
	RevokedTokenPrefix = "blacklist:%s"
)

const (
	UserTTL     = 5 * time.Minute
	BlogTTL     = 30 * time.Minute
	BlogListTTL = 2 * time.Minute
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func BlogKey(blogID string) string {
	return fmt.Sprintf(BlogKeyPrefix, blogID)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenPrefix, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if c := GetClient(); c != nil && len(keys) > 0 {
		c.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateBlog drops the blog and the cached list it appears in.
func InvalidateBlog(ctx context.Context, blogID string) {
	Invalidate(ctx, BlogKey(blogID), BlogListKey)
}

func InvalidateBlogList(ctx context.Context) {
	Invalidate(ctx, BlogListKey)
}

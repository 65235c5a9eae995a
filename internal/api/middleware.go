package api

import (
	"github.com/gin-gonic/gin"
)

const accountKey = "accountID"

// TenantMiddleware resolves the owning account for the request. Single-tenant
// deploys without the header fall back to a fixed account.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetHeader("X-Account-ID")
		if account == "" {
			account = "default"
		}
		c.Set(accountKey, account)
		c.Next()
	}
}

// AccountID returns the account the request is scoped to.
func AccountID(c *gin.Context) string {
	return c.GetString(accountKey)
}

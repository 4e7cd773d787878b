package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TenantClaim is the token claim naming the tenant a user belongs to.
const TenantClaim = "tenantId"

// Tenant requires the tenantId query parameter and stores it as tenant_id.
// Behind AuthRequired the tenant must be the token's tenant or one below it.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Query("tenantId")
		if tenantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId is required"})
			c.Abort()
			return
		}

		if claims, ok := c.Get("claims"); ok {
			jwtClaims, _ := claims.(jwt.MapClaims)
			owner, _ := jwtClaims[TenantClaim].(string)
			if owner == "" {
				c.JSON(http.StatusForbidden, gin.H{"error": "Tenant not found in token"})
				c.Abort()
				return
			}
			if !withinTenant(tenantID, owner) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Tenant not allowed for token"})
				c.Abort()
				return
			}
		}

		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

// withinTenant reports whether tenantID is owner or a tenant below it.
func withinTenant(tenantID, owner string) bool {
	return tenantID == owner || strings.HasPrefix(tenantID, owner+".")
}

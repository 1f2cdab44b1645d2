package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenCookieName 是匿名访客令牌的 Cookie 名。
	TokenCookieName = "ps_token"
	// CallerHashKey 是上下文中访客标识哈希的键。
	CallerHashKey = "callerHash"

	tokenTTL = 365 * 24 * time.Hour
)

// ClientToken 为每个访客维护一个签名的匿名令牌。
//
// 首次访问时签发 HS256 JWT 写入 Cookie，后续请求校验签名后把令牌的
// SHA-256 哈希写入上下文。收藏等按访客隔离的数据只存哈希，不存原始令牌。
// 签名无效时换发新令牌而不是拒绝请求，访客不需要登录。
func ClientToken(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(TokenCookieName)
		if err != nil || !validToken(tokenStr, key) {
			tokenStr, err = issueToken(key)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "issue client token failed"})
				c.Abort()
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(TokenCookieName, tokenStr, int(tokenTTL.Seconds()), "/", "", false, true)
		}

		c.Set(CallerHashKey, HashToken(tokenStr))
		c.Next()
	}
}

// CallerHash 从上下文取访客哈希。中间件未挂载时返回空串。
func CallerHash(c *gin.Context) string {
	v, ok := c.Get(CallerHashKey)
	if !ok {
		return ""
	}
	h, _ := v.(string)
	return h
}

// HashToken 返回令牌的十六进制 SHA-256 哈希。
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func issueToken(key []byte) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func validToken(tokenStr string, key []byte) bool {
	if tokenStr == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	return err == nil && token.Valid && claims.Subject != ""
}

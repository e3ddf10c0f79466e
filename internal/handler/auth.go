package handler

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	authField            = "auth"
	notAuthorizedMessage = "Not Authorized"
	maxAuthBodyBytes     = 32 << 20
)

// RequireAuth 校验请求体中的 auth 字段，失败时返回 408 并终止后续处理。
func (a *API) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authorized(readAuthField(c)) {
			c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": notAuthorizedMessage})
			return
		}
		c.Next()
	}
}

// authorized 支持明文或 bcrypt 哈希形式的 AUTH_KEY；未配置时拒绝全部请求。
func (a *API) authorized(supplied string) bool {
	key := strings.TrimSpace(a.authKey)
	supplied = strings.TrimSpace(supplied)
	if key == "" || supplied == "" {
		return false
	}
	if strings.HasPrefix(key, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(key), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(supplied)) == 1
}

// readAuthField 读取 JSON 或表单中的 auth 字段，JSON 请求体读取后会被还原供后续绑定。
func readAuthField(c *gin.Context) string {
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm, gin.MIMEPOSTForm:
		return c.PostForm(authField)
	}

	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAuthBodyBytes))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	var payload struct {
		Auth string `json:"auth"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Auth
}

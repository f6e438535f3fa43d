package jwt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cms_chat_console/pkg/errorx"
)

const (
	issuer         = "cms_chat_console"
	subjectConsole = "console_access"
)

// JWTConfig 控制台 Token 配置
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration // Access Token 有效期
}

// 全局配置，由 Init 函数初始化
var jwtConfig *JWTConfig

// Init 初始化 JWT 配置
func Init(secret string, accessExpiryMinutes int) {
	jwtConfig = &JWTConfig{
		Secret:            secret,
		AccessTokenExpiry: time.Duration(accessExpiryMinutes) * time.Minute,
	}
}

// Enabled 配置了密钥才启用控制台鉴权
func Enabled() bool {
	return jwtConfig != nil && jwtConfig.Secret != ""
}

// Claims 控制台 Token 声明
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 为控制台操作员签发 Access Token
func GenerateAccessToken(operator string) (string, error) {
	if !Enabled() {
		return "", errorx.New(errorx.CodeInvalidParam, "未配置 jwtConfig.secret")
	}
	now := time.Now()
	claims := Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtConfig.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subjectConsole,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.Secret))
}

// ParseToken 解析并验证控制台 Token
func ParseToken(tokenString string) (*Claims, error) {
	if !Enabled() {
		return nil, errorx.New(errorx.CodeUnauthorized, "未配置 jwtConfig.secret")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtConfig.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(subjectConsole),
	)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUnauthorized, "Token 无效")
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errorx.Wrap(jwt.ErrSignatureInvalid, errorx.CodeUnauthorized, "Token 无效")
}

// BackendTokenInfo 后端 cookie token 中能读出的信息
type BackendTokenInfo struct {
	UserID    int64
	ExpiresAt time.Time // 零值表示没有 exp
	IssuedAt  time.Time
}

// Expired now 时刻是否已过期
func (i *BackendTokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// InspectBackendToken 不校验签名地读取后端 token（签名密钥只有后端知道）
// 格式错误返回 CodeInvalidParam，已过期返回 CodeUnauthorized
func InspectBackendToken(tokenString string, now time.Time) (*BackendTokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeInvalidParam, "后端 token 格式错误")
	}
	info := &BackendTokenInfo{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	for _, key := range []string{"user_id", "id", "sub"} {
		if id, ok := claimInt(claims[key]); ok {
			info.UserID = id
			break
		}
	}
	if info.Expired(now) {
		return info, errorx.Newf(errorx.CodeUnauthorized, "后端 token 已于 %s 过期", info.ExpiresAt.Format(time.RFC3339))
	}
	return info, nil
}

// claimInt JSON 数字解码为 float64，也兼容字符串形式的 id
func claimInt(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case string:
		id, err := strconv.ParseInt(x, 10, 64)
		return id, err == nil
	case nil:
		return 0, false
	default:
		id, err := strconv.ParseInt(fmt.Sprint(x), 10, 64)
		return id, err == nil
	}
}

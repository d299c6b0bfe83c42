package security

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"PPicture/tools/decode"
	"PPicture/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Options 控制签名与TTL等参数。
type Options struct {
	Secret []byte        // HMAC 密钥（生产用ENV/KMS）
	Alg    string        // HS256/HS384/HS512（默认 HS256）
	TTL    time.Duration // 令牌有效期（默认 2h）
	Issuer string
}

// Claims 是握手阶段关心的字段
type Claims struct {
	Subject  string   `json:"sub"`
	UserID   int64    `json:"uid"`
	Account  string   `json:"acc"`
	Scope    []string `json:"scope"`
	IssuedAt int64    `json:"iat"`
	Expires  int64    `json:"exp"`
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour, Issuer: "ppicture"}
}

// Generate 签发令牌；uid 以字符串写入，避免前端 number 精度丢失
func Generate(opts Options, userID int64, account string, scopes []string) (token string, expireAt time.Time, err error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if len(opts.Secret) == 0 {
		return "", time.Time{}, errs.ErrArgs.WrapMsg("jwt secret is empty")
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := jwtlib.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"uid": strconv.FormatInt(userID, 10),
		"acc": account,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	if len(scopes) > 0 {
		claims["scope"] = strings.Join(scopes, " ")
	}

	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

// Verify 校验签名与有效期，返回解析后的 Claims
func Verify(opts Options, token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errs.ErrNotLogin.WrapMsg("empty token")
	}
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return nil, err
	}
	parserOpts := []jwtlib.ParserOption{jwtlib.WithValidMethods([]string{method.Alg()})}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwtlib.WithIssuer(opts.Issuer))
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// 仅允许 HMAC 家族
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errs.ErrTokenExpired.WrapMsg(err.Error())
		}
		return nil, errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	if !parsed.Valid {
		return nil, errs.ErrTokenInvalid.WrapMsg("invalid token")
	}
	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errs.ErrTokenInvalid.WrapMsg("claims type mismatch")
	}
	claims, err := decode.DecodeMap[Claims](mc)
	if err != nil {
		return nil, errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	if claims.UserID == 0 && claims.Subject != "" {
		if uid, perr := strconv.ParseInt(claims.Subject, 10, 64); perr == nil {
			claims.UserID = uid
		}
	}
	if claims.UserID <= 0 {
		return nil, errs.ErrTokenInvalid.WrapMsg("token has no user id")
	}
	return claims, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, errs.ErrArgs.WrapMsg("unsupported alg (use HS256/HS384/HS512)", "alg", alg)
	}
}

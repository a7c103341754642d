package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const defaultBcryptCost = bcrypt.DefaultCost

// HashPassword 对明文密码进行哈希处理
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), defaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword 验证密码是否与存储的哈希值匹配。
// 没有设置密码的账户（仅通过确认码登录）永远不匹配。
func VerifyPassword(hash, candidate string) error {
	if strings.TrimSpace(hash) == "" {
		return errors.New("account has no usable password")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
}

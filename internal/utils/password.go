package utils

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt只使用口令的前72字节,超长部分在哈希前截断
const bcryptMaxBytes = 72

// TruncatePassword 将口令截断到72字节,并保证不切断多字节字符。
// 哈希和校验都走同一截断,因此仅在第72字节之后不同的口令视为相同口令。
func TruncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) <= bcryptMaxBytes {
		return b
	}
	b = b[:bcryptMaxBytes]
	// 回退到字符边界
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return b
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword(TruncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), TruncatePassword(password))
}

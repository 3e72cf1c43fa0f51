package store

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrCodeSpaceExhausted is returned when no free room code is found after
// the retry limit.
var ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")

const codeRetries = 10

// GenerateRoomCode draws uniform 6-digit codes until inUse reports one
// free, up to codeRetries attempts. Codes never start with zero.
func GenerateRoomCode(inUse func(code string) (bool, error)) (string, error) {
	for range codeRetries {
		code := fmt.Sprintf("%06d", 100000+rand.IntN(900000))
		taken, err := inUse(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

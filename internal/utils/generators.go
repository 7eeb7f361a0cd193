package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateBookingCode builds a human-readable booking code of the form
// {PREFIX}-{DDMMYYYY}-{NNNN}, e.g. PM-31082026-0482. The date part is the
// booking day (venue local time), the suffix is random. Collisions are
// acceptable: the code is a display identifier, never the primary key.
func GenerateBookingCode(prefix string, now time.Time) string {
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(10000))
	return fmt.Sprintf("%s-%02d%02d%04d-%04d", prefix, now.Day(), int(now.Month()), now.Year(), randomNum.Int64())
}

package lib

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/emersion/go-imap"
)

const charset = "abcdefghijklmnopqrstuvwxyz " +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 " +
	",./;'\\ \" []{}<>?:|!@£$%^&*()_+-= " +
	"\r\n\r\n\r\n "

const template = "From: %s\r\n" +
	"To: %s\r\n" +
	"Subject: A little message, just for you\r\n" +
	"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
	"Message-ID: <%d@localhost/>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n"

var seededRand *rand.Rand = rand.New(
	rand.NewSource(time.Now().UnixMilli()))

func stringWithCharset(length int, charset string) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}

// GenerateEmail builds a fake email of a random size within [minSize, maxSize]
// body bytes. It returns the raw message and the offset where the body starts.
func GenerateEmail(from, to string, sequence uint32, minSize, maxSize int) ([]byte, uint32) {
	if maxSize < minSize {
		maxSize = minSize
	}
	length := minSize
	if maxSize > minSize {
		length += seededRand.Intn(maxSize - minSize)
	}
	headers := fmt.Sprintf(template, from, to, sequence)
	msg := headers + stringWithCharset(length, charset)
	return []byte(msg), uint32(len(headers))
}

// GenerateFlags picks a random plausible flag set for a fake email.
func GenerateFlags() []string {
	all := []string{imap.SeenFlag, imap.AnsweredFlag, imap.FlaggedFlag, imap.DraftFlag}
	flags := make([]string, 0, len(all))
	for _, flag := range all {
		if seededRand.Intn(3) == 0 {
			flags = append(flags, flag)
		}
	}
	return flags
}

// GenerateDateFrom returns a random date between `from` and now.
func GenerateDateFrom(from time.Time) time.Time {
	window := time.Since(from)
	if window <= 0 {
		return from
	}
	return from.Add(time.Duration(seededRand.Int63n(int64(window))))
}

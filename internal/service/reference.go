package service

import (
	"strings"

	"github.com/lithammer/shortuuid/v3"
)

const (
	referencePrefix = "CC-"
	referenceLength = 8
)

// shortuuid не использует 0, 1, I, O и l, но после ToUpper строчные i/o превращаются в I/O
var unambiguous = strings.NewReplacer("I", "J", "O", "Q")

// NewReference генерирует booking reference вида CC-7KQ2M9XD без 0/O и 1/I/L.
// Коллизию ловит уникальный индекс хранилища, и Processor генерирует новый.
func NewReference() string {
	return referencePrefix + unambiguous.Replace(strings.ToUpper(shortuuid.New()[:referenceLength]))
}

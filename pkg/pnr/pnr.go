package pnr

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

const prefix = "PNR"

// New 產生一組訂票代號，例如 "PNR4F2K9QX1AB"。
// 以 UUID 為亂數來源取 base32 前 10 碼；唯一性由 tickets.pnr_no 的主鍵約束保證，
// 產生器本身不負責去重。
func New() string {
	id := uuid.New()
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(id[:])
	return prefix + strings.ToUpper(encoded[:10])
}

package kv

import (
	"time"

	"github.com/uptrace/bun"
)

type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e" tstype:"-"`

	Key       string    `bun:",pk,nullzero" json:"key"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Value     []byte    `bun:",notnull" json:"-"`
	Size      int64     `bun:",notnull" json:"size"`
}

// ScanOptions narrows a Scan to keys with the given prefix. Keys ending in any
// of ExcludeSuffixes are skipped without their values ever being read.
type ScanOptions struct {
	Prefix          string
	ExcludeSuffixes []string
}

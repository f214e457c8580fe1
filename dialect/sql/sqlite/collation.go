// Package sqlite registers the LOCALIZED collation on the pure-Go SQLite
// engine. String columns are ordered with COLLATE LOCALIZED by default on
// SQLite, so programs using modernc.org/sqlite should import this package:
//
//	import _ "github.com/syssam/dao/dialect/sql/sqlite"
package sqlite

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"modernc.org/sqlite"
)

// Name is the collation name used in ORDER BY clauses.
const Name = "LOCALIZED"

var (
	mu       sync.Mutex
	collator = collate.New(language.Und)
)

func init() {
	if err := sqlite.RegisterCollationUtf8(Name, Compare); err != nil {
		panic(err)
	}
}

// SetLocale switches the collation to the rules of tag. It affects
// connections opened afterwards as well as existing ones.
func SetLocale(tag language.Tag) {
	c := collate.New(tag)
	mu.Lock()
	collator = c
	mu.Unlock()
}

// Compare orders two strings by the current locale. A Collator keeps
// internal buffers, so calls are serialized.
func Compare(left, right string) int {
	mu.Lock()
	defer mu.Unlock()
	return collator.CompareString(left, right)
}

package jorm

import (
	"github.com/shrek82/jorm/core"
)

// Re-export core types and functions
type DB = core.DB
type Query = core.Query
type Options = core.Options

var Open = core.Open

package ir

import "github.com/borzacchiello/alivetv/smt"

func testBuilder() *smt.Builder { return smt.NewBuilder() }

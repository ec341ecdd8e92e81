package api

import "github.com/hexedtech/codemp/pkg/hashutil"

func contentHash(s string) int64 {
	return hashutil.HashString(s)
}

/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package stringutils

import "strings"

// ChunkJoinStrings joins items with sep into as many strings as needed to
// keep each joined string within maxlength. An item that alone exceeds
// maxlength is emitted as its own oversized chunk rather than dropped.
func ChunkJoinStrings(maxlength int, sep string, items ...string) []string {
	var chunks []string
	var builder strings.Builder

	for _, item := range items {
		if builder.Len() == 0 {
			builder.WriteString(item)
			continue
		}

		if builder.Len()+len(sep)+len(item) > maxlength {
			chunks = append(chunks, builder.String())
			builder.Reset()
			builder.WriteString(item)
			continue
		}

		builder.WriteString(sep)
		builder.WriteString(item)
	}

	if builder.Len() > 0 {
		chunks = append(chunks, builder.String())
	}

	return chunks
}

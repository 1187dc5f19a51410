/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// Package kv splits the "key : value" lines used by MetaMan exports and
// sample sheets.
package kv

import (
	"strings"

	"vimagination.zapto.org/parser"
)

// Separator sits between a key and its value.
const Separator = " : "

// Split splits line on the first occurrence of Separator. The value is
// everything after the separator, verbatim, so it may itself contain further
// separators. ok is false if the line has no separator.
func Split(line string) (key, value string, ok bool) {
	tk := parser.NewStringTokeniser(line)

	var sb strings.Builder

	for {
		if tk.ExceptRun(" ") == -1 {
			return "", "", false
		}

		sb.WriteString(tk.Get())

		if !tk.Accept(" ") {
			continue
		}

		if tk.Accept(":") && tk.Accept(" ") {
			key = sb.String()

			return key, line[len(key)+len(Separator):], true
		}

		sb.WriteString(tk.Get())
	}
}

// SplitTrailing is like Split, but also treats a line ending in " :" as a key
// with an empty value.
func SplitTrailing(line string) (key, value string, ok bool) {
	if key, value, ok = Split(line); ok {
		return key, value, ok
	}

	if k, found := strings.CutSuffix(line, " :"); found {
		return k, "", true
	}

	return "", "", false
}

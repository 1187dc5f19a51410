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
package metaman

// Params is an insertion-ordered map of keys to one or more string values.
// The zero value is ready to use.
type Params struct {
	keys   []string
	values map[string][]string
}

// NewParams returns Params holding a single key with the given values.
func NewParams(key string, values ...string) *Params {
	p := &Params{}
	p.Set(key, values...)

	return p
}

// Add appends value to those already held for key.
func (p *Params) Add(key, value string) {
	if p.values == nil {
		p.values = make(map[string][]string)
	}

	vals, ok := p.values[key]
	if !ok {
		p.keys = append(p.keys, key)
	}

	p.values[key] = append(vals, value)
}

// Set replaces the values held for key.
func (p *Params) Set(key string, values ...string) {
	if p.values == nil {
		p.values = make(map[string][]string)
	}

	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}

	p.values[key] = append([]string(nil), values...)
}

// Get returns the values held for key.
func (p *Params) Get(key string) ([]string, bool) {
	if p == nil {
		return nil, false
	}

	vals, ok := p.values[key]

	return vals, ok
}

// First returns the first value held for key.
func (p *Params) First(key string) (string, bool) {
	vals, ok := p.Get(key)
	if !ok || len(vals) == 0 {
		return "", false
	}

	return vals[0], true
}

// Keys returns our keys in the order they were first added.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}

	return append([]string(nil), p.keys...)
}

// Len returns the number of distinct keys.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}

	return len(p.keys)
}

// Each calls cb for every key, in order, with its values.
func (p *Params) Each(cb func(key string, values []string)) {
	if p == nil {
		return
	}

	for _, key := range p.keys {
		cb(key, p.values[key])
	}
}

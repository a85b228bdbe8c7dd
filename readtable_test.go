package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_default_readtable(t *testing.T) {
	rt := newReadtable()

	expectProps := func(chars string, props charProp) {
		for i := 0; i < len(chars); i++ {
			c := chars[i]
			assert.Equal(t, props, rt.props[c], "properties of %q", c)
		}
	}

	expectProps("abcdefghijklmnopqrstuvwxyz", propConstituent)
	expectProps("ABCDEFGHIJKLMNOPQRSTUVWXYZ", propConstituent)
	expectProps("_!@#$%^&*:,.<>=/?;", propConstituent)
	expectProps("-+", propNumberInit|propConstituent)
	expectProps("0123456789", propNumberInit|propNumber|propConstituent)
	expectProps(`"[(`, propMacro)
	expectProps("])", propError)
	expectProps(" \t\r\n", propWhitespace)

	// every macro byte must have a handler
	for c := 0; c < 256; c++ {
		if rt.props[c]&propMacro != 0 {
			assert.NotNil(t, rt.dispatch[c], "dispatch slot for %q", byte(c))
		}
	}

	// everything else carries nothing
	classified := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"_!@#$%^&*:,.<>=/?;-+0123456789" + `"[(])` + " \t\r\n"
	for c := 0; c < 256; c++ {
		if !containsByte(classified, byte(c)) {
			assert.Zero(t, rt.props[c], "properties of %q", byte(c))
		}
	}
}

func containsByte(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}

func Test_readtable_copies_are_independent(t *testing.T) {
	a, b := newReadtable(), newReadtable()
	a.props['{'] |= propMacro
	a.dispatch['{'] = (*VM).readQuote
	assert.Zero(t, b.props['{'])
	assert.Nil(t, b.dispatch['{'])
}

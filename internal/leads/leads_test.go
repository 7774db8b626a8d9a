package leads

import (
    "regexp"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
)

var nanpPattern = regexp.MustCompile(`^\([2-9][0-8][0-9]\) [2-9][0-9]{2}-[0-9]{4}$`)

func TestGenerateMatchesNANPFormat(t *testing.T) {
    for i := 0; i < 200; i++ {
        number := Generate()
        assert.Regexp(t, nanpPattern, number)
    }
}

func TestCentralOfficeCodeValidity(t *testing.T) {
    for i := 0; i < 200; i++ {
        number := Generate()
        coc := strings.Split(number, ") ")[1][:3]
        assert.True(t, coc[0] >= '2' && coc[0] <= '9', "central office code %q has invalid first digit", coc)
        assert.NotEqual(t, "11", coc[1:], "central office code %q must not end in 11", coc)
    }
}

// Package leads generates synthetic NANP-format phone numbers to dial.
// It is the only source of randomness at the dialer's core boundary; a
// production deployment replaces this with a CRM lead feed.
package leads

import (
    "fmt"
    "math/rand"
)

// Generate returns a synthetic phone number in the human-readable form
// "(NPA) NXX-XXXX", where NPA is a 3-digit area code whose first digit is
// 2-9, and NXX is a central-office code whose first digit is 2-9 and
// whose last two digits are not "11".
func Generate() string {
    return fmt.Sprintf("(%s) %s-%s", generateNPA(), generateCentralOfficeCode(), generateLineNumber())
}

func generateNPA() string {
    first := rand.Intn(8) + 2 // 2-9
    second := rand.Intn(9)    // 0-8, matches the original generator's range
    third := rand.Intn(10)    // 0-9
    return fmt.Sprintf("%d%d%d", first, second, third)
}

func generateCentralOfficeCode() string {
    first := rand.Intn(8) + 2 // 2-9
    second := rand.Intn(10)
    third := rand.Intn(10)
    for second == 1 && third == 1 {
        third = rand.Intn(10)
    }
    return fmt.Sprintf("%d%d%d", first, second, third)
}

func generateLineNumber() string {
    return fmt.Sprintf("%04d", rand.Intn(10000))
}

package similarity

import "strings"

var soundexCode = map[byte]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex computes the classic 4-character Soundex code for a name.
func Soundex(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	var filtered []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			filtered = append(filtered, s[i])
		}
	}
	if len(filtered) == 0 {
		return ""
	}

	code := []byte{filtered[0]}
	lastDigit := soundexCode[filtered[0]]

	for i := 1; i < len(filtered) && len(code) < 4; i++ {
		d, ok := soundexCode[filtered[i]]
		if !ok {
			// H and W do not break consecutive-duplicate-coding; vowels do.
			if filtered[i] != 'H' && filtered[i] != 'W' {
				lastDigit = 0
			}
			continue
		}
		if d != lastDigit {
			code = append(code, d)
		}
		lastDigit = d
	}

	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// PhoneticNameSimilarity averages Soundex equality across the given
// and surname components (§4.4 "Names phonetic").
func PhoneticNameSimilarity(givenA, surnameA, givenB, surnameB string) float64 {
	var total float64
	var n int

	if givenA != "" || givenB != "" {
		n++
		if Soundex(givenA) == Soundex(givenB) && Soundex(givenA) != "" {
			total++
		}
	}
	if surnameA != "" || surnameB != "" {
		n++
		if Soundex(surnameA) == Soundex(surnameB) && Soundex(surnameA) != "" {
			total++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

package run

import "strings"

// RUN is a validated identity number in canonical form: body, hyphen, check
// character (e.g. "12345678-5"). The zero value is the empty RUN.
type RUN string

// Parse validates raw and returns it in canonical form.
func Parse(raw string) (RUN, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmpty
	}
	body, check, ok := Split(raw)
	if !ok {
		return "", ErrMalformed
	}
	if check != checkDigit(body) {
		return "", ErrCheckDigit
	}
	return RUN(trimZeros(body) + "-" + check), nil
}

// Canonical returns the canonical form of raw, or "" if raw is not a valid RUN.
func Canonical(raw string) string {
	r, err := Parse(raw)
	if err != nil {
		return ""
	}
	return r.String()
}

func (r RUN) String() string { return string(r) }

func (r RUN) IsZero() bool { return r == "" }

func (r RUN) Body() string {
	if i := strings.LastIndexByte(string(r), '-'); i > 0 {
		return string(r)[:i]
	}
	return ""
}

func (r RUN) CheckDigit() string {
	if i := strings.LastIndexByte(string(r), '-'); i > 0 {
		return string(r)[i+1:]
	}
	return ""
}

// Format returns the dotted presentation, e.g. "12.345.678-5".
func (r RUN) Format() string {
	if r.IsZero() {
		return ""
	}
	return groupThousands(r.Body()) + "-" + r.CheckDigit()
}

// Masked hides all but the last three body digits, e.g. "**.***.678-5".
func (r RUN) Masked() string {
	if r.IsZero() {
		return ""
	}
	body := r.Body()
	keep := 3
	if len(body) < keep {
		keep = len(body)
	}
	hidden := strings.Repeat("*", len(body)-keep) + body[len(body)-keep:]
	return groupThousands(hidden) + "-" + r.CheckDigit()
}

// Equal reports whether other, in any accepted input form, is the same RUN.
func (r RUN) Equal(other string) bool {
	return !r.IsZero() && Canonical(other) == string(r)
}

func (r RUN) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

func (r *RUN) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = ""
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// trimZeros drops leading zeros, which carry no weight in the check sum.
func trimZeros(body string) string {
	t := strings.TrimLeft(body, "0")
	if t == "" {
		return "0"
	}
	return t
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

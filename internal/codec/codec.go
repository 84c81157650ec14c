// Package codec implements the bracket-delimited text records used to persist
// calibration and pose data. A record is a list of comma separated elements
// enclosed in square brackets; elements may themselves be records:
//
//	[[1,0,0],[0.5,-2,3.25]]
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ayusman/glovecore/internal/geom"
)

// ErrMalformed is returned when a record cannot be parsed.
var ErrMalformed = errors.New("malformed record")

const (
	openBracket  = '['
	closeBracket = ']'
	sep          = ','
)

// Enclose wraps s in brackets.
func Enclose(s string) string {
	return string(openBracket) + s + string(closeBracket)
}

// Join encloses already formatted elements into a single record.
func Join(elements ...string) string {
	return Enclose(strings.Join(elements, string(sep)))
}

// SplitBlocks removes the outer brackets of a record and returns its top level
// elements. Nested records are returned with their brackets intact.
func SplitBlocks(record string) ([]string, error) {
	s := strings.TrimSpace(record)
	if len(s) < 2 || s[0] != openBracket || s[len(s)-1] != closeBracket {
		return nil, fmt.Errorf("%w: expected enclosing brackets in %q", ErrMalformed, truncate(record))
	}
	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return []string{}, nil
	}

	var blocks []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case openBracket:
			depth++
		case closeBracket:
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced brackets in %q", ErrMalformed, truncate(record))
			}
		case sep:
			if depth == 0 {
				blocks = append(blocks, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced brackets in %q", ErrMalformed, truncate(record))
	}
	blocks = append(blocks, strings.TrimSpace(body[start:]))
	return blocks, nil
}

// FormatFloat renders f so that ParseFloat returns the exact same value.
func FormatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// ParseFloat parses a single float element.
func ParseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return float32(f), nil
}

// FormatList renders items as a record using format for every element.
func FormatList[T any](items []T, format func(T) string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = format(item)
	}
	return Join(parts...)
}

// ParseList parses a record whose elements are decoded by parse.
func ParseList[T any](record string, parse func(string) (T, error)) ([]T, error) {
	blocks, err := SplitBlocks(record)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(blocks))
	for i, b := range blocks {
		v, err := parse(b)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// FormatFloats renders a float array.
func FormatFloats(values []float32) string {
	return FormatList(values, FormatFloat)
}

// ParseFloats parses a float array.
func ParseFloats(record string) ([]float32, error) {
	return ParseList(record, ParseFloat)
}

// FormatFloats2D renders a 2D float array.
func FormatFloats2D(values [][]float32) string {
	return FormatList(values, FormatFloats)
}

// ParseFloats2D parses a 2D float array.
func ParseFloats2D(record string) ([][]float32, error) {
	return ParseList(record, ParseFloats)
}

// FormatVect renders a vector as [x,y,z].
func FormatVect(v geom.Vect3D) string {
	return Join(FormatFloat(v.X), FormatFloat(v.Y), FormatFloat(v.Z))
}

// ParseVect parses a vector record.
func ParseVect(record string) (geom.Vect3D, error) {
	f, err := ParseFloats(record)
	if err != nil {
		return geom.Zero, err
	}
	if len(f) != 3 {
		return geom.Zero, fmt.Errorf("%w: vector needs 3 components, got %d", ErrMalformed, len(f))
	}
	return geom.V(f[0], f[1], f[2]), nil
}

// FormatVects renders a vector array.
func FormatVects(values []geom.Vect3D) string {
	return FormatList(values, FormatVect)
}

// ParseVects parses a vector array.
func ParseVects(record string) ([]geom.Vect3D, error) {
	return ParseList(record, ParseVect)
}

// FormatVects2D renders a 2D vector array.
func FormatVects2D(values [][]geom.Vect3D) string {
	return FormatList(values, FormatVects)
}

// ParseVects2D parses a 2D vector array.
func ParseVects2D(record string) ([][]geom.Vect3D, error) {
	return ParseList(record, ParseVects)
}

// FormatQuat renders a quaternion as [w,x,y,z].
func FormatQuat(q geom.Quat) string {
	return Join(FormatFloat(q.W), FormatFloat(q.X), FormatFloat(q.Y), FormatFloat(q.Z))
}

// ParseQuat parses a quaternion record.
func ParseQuat(record string) (geom.Quat, error) {
	f, err := ParseFloats(record)
	if err != nil {
		return geom.Identity, err
	}
	if len(f) != 4 {
		return geom.Identity, fmt.Errorf("%w: quaternion needs 4 components, got %d", ErrMalformed, len(f))
	}
	return geom.Quat{W: f[0], X: f[1], Y: f[2], Z: f[3]}, nil
}

// FormatQuats renders a quaternion array.
func FormatQuats(values []geom.Quat) string {
	return FormatList(values, FormatQuat)
}

// ParseQuats parses a quaternion array.
func ParseQuats(record string) ([]geom.Quat, error) {
	return ParseList(record, ParseQuat)
}

// FormatQuats2D renders a 2D quaternion array.
func FormatQuats2D(values [][]geom.Quat) string {
	return FormatList(values, FormatQuats)
}

// ParseQuats2D parses a 2D quaternion array.
func ParseQuats2D(record string) ([][]geom.Quat, error) {
	return ParseList(record, ParseQuats)
}

// FormatBool renders a boolean as 1 or 0.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool parses a 1/0 element.
func ParseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: bad boolean %q", ErrMalformed, s)
}

// FormatBools renders a boolean array.
func FormatBools(values []bool) string {
	return FormatList(values, FormatBool)
}

// ParseBools parses a boolean array.
func ParseBools(record string) ([]bool, error) {
	return ParseList(record, ParseBool)
}

// Expect splits a record and checks that it has exactly n top level elements.
func Expect(record string, n int) ([]string, error) {
	blocks, err := SplitBlocks(record)
	if err != nil {
		return nil, err
	}
	if len(blocks) != n {
		return nil, fmt.Errorf("%w: expected %d elements, got %d", ErrMalformed, n, len(blocks))
	}
	return blocks, nil
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

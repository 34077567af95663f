package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrNoBoundingBox        = errors.New("no spatial extra")
	ErrMalformedBoundingBox = errors.New("malformed spatial extra")
)

// BoundingBox reads a GeoJSON-ish polygon as stored in a CKAN spatial
// extra, e.g. {"type":"Polygon","coordinates":[[[minx,miny],...]]}, and
// returns "minx,miny,maxx,maxy". The corners are the first and third
// points of the ring, each coordinate rounded to 3 places.
func BoundingBox(value string) (string, error) {
	parts := strings.Split(value, ":[")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: no coordinate list", ErrMalformedBoundingBox)
	}
	list := strings.Split(parts[1], "]}")[0]

	var points [][]json.Number
	if err := json.Unmarshal([]byte(list), &points); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedBoundingBox, err)
	}
	if len(points) < 3 {
		return "", fmt.Errorf("%w: %d points", ErrMalformedBoundingBox, len(points))
	}

	corners := append(append([]json.Number{}, points[0]...), points[2]...)
	coords := make([]string, 0, len(corners))
	for _, n := range corners {
		c, err := Round3(n.String())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedBoundingBox, err)
		}
		coords = append(coords, c)
	}
	return strings.Join(coords, ","), nil
}

var thousand = big.NewRat(1000, 1)

// Round3 rounds a decimal literal to 3 places, half to even, without
// passing through a float. Negative values keep their sign even when they
// round to zero.
func Round3(s string) (string, error) {
	s = strings.TrimSpace(s)
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return "", fmt.Errorf("not a number: %q", s)
	}

	scaled := new(big.Rat).Mul(new(big.Rat).Abs(r), thousand)
	q, rem := new(big.Int).QuoRem(scaled.Num(), scaled.Denom(), new(big.Int))
	switch new(big.Int).Lsh(rem, 1).Cmp(scaled.Denom()) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}

	digits := q.String()
	if len(digits) < 4 {
		digits = strings.Repeat("0", 4-len(digits)) + digits
	}
	out := digits[:len(digits)-3] + "." + digits[len(digits)-3:]
	if strings.HasPrefix(s, "-") {
		out = "-" + out
	}
	return out, nil
}

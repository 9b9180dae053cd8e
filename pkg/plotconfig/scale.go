package plotconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Ratio is a custom plot scale: Paper units on the sheet for every Drawing
// units in the drawing.
type Ratio struct {
	Paper   float64
	Drawing float64
}

// OneToOne is the fallback scale.
var OneToOne = Ratio{Paper: 1, Drawing: 1}

func (r Ratio) String() string {
	return strconv.FormatFloat(r.Paper, 'g', -1, 64) + ":" + strconv.FormatFloat(r.Drawing, 'g', -1, 64)
}

// Factor returns Paper/Drawing.
func (r Ratio) Factor() float64 { return r.Paper / r.Drawing }

// IsFit reports whether s selects scale-to-fit.
func IsFit(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), ScaleFit)
}

// ParseScale parses a ratio string. Accepted forms are "N:M", "N/M" and a
// single value. A single value below 1 means 1:(1/value), so "0.5" is 1:2.
// On any failure it returns OneToOne and an error describing the problem;
// callers that degrade gracefully can ignore the error.
func ParseScale(s string) (Ratio, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OneToOne, fmt.Errorf("empty scale")
	}

	if i := strings.IndexAny(s, ":/"); i >= 0 {
		n, err1 := parsePositive(s[:i])
		m, err2 := parsePositive(s[i+1:])
		if err1 != nil || err2 != nil {
			return OneToOne, fmt.Errorf("invalid scale %q", s)
		}
		return Ratio{Paper: n, Drawing: m}, nil
	}

	v, err := parsePositive(s)
	if err != nil {
		return OneToOne, fmt.Errorf("invalid scale %q", s)
	}
	if v < 1 {
		return Ratio{Paper: 1, Drawing: 1 / v}, nil
	}
	return Ratio{Paper: v, Drawing: 1}, nil
}

func parsePositive(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%v is not a positive number", v)
	}
	return v, nil
}

package translate

import (
	"fmt"
	"strings"
)

// Transform rewrites one legacy function call, given its already-split
// argument list, into a Postgres expression. A returned error aborts only
// this rule application; the rewrite engine records it as a warning and
// leaves the call untouched.
type Transform func(args []string) (string, error)

// argCount guards a transform against malformed argument lists.
func argCount(name string, args []string, min, max int) error {
	if len(args) < min || len(args) > max {
		return fmt.Errorf("%s: expected %d-%d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

// intervalUnits maps legacy date-part unit codes to Postgres extract fields
// and interval units. The quarter code has no interval unit of its own, it
// multiplies months by 3.
var intervalUnits = map[string]struct {
	Field    string // EXTRACT field
	Interval string // interval unit for DateAdd
	Mult     int    // multiplier applied to the interval count
}{
	"yyyy": {"YEAR", "year", 1},
	"q":    {"QUARTER", "month", 3},
	"m":    {"MONTH", "month", 1},
	"d":    {"DAY", "day", 1},
	"y":    {"DOY", "day", 1},
	"w":    {"DOW", "day", 1},
	"ww":   {"WEEK", "week", 1},
	"h":    {"HOUR", "hour", 1},
	"n":    {"MINUTE", "minute", 1},
	"s":    {"SECOND", "second", 1},
}

// unitCode extracts the unit code from a (usually quoted) first argument.
func unitCode(arg string) (string, error) {
	code := strings.ToLower(strings.Trim(strings.TrimSpace(arg), `"'`))
	if _, ok := intervalUnits[code]; !ok {
		return "", fmt.Errorf("unknown date unit code %q", code)
	}
	return code, nil
}

// Catalog maps lowercased legacy function names to their transforms.
// Duplicate names are a compile error by construction of the map literal.
var Catalog = map[string]Transform{
	// Null handling and conditionals.
	"nz": func(args []string) (string, error) {
		if err := argCount("Nz", args, 1, 2); err != nil {
			return "", err
		}
		if len(args) == 1 {
			return fmt.Sprintf("COALESCE(%s, '')", args[0]), nil
		}
		return fmt.Sprintf("COALESCE(%s, %s)", args[0], args[1]), nil
	},
	"iif": func(args []string) (string, error) {
		if err := argCount("IIf", args, 3, 3); err != nil {
			return "", err
		}
		return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", args[0], args[1], args[2]), nil
	},
	"switch": func(args []string) (string, error) {
		if len(args) < 2 || len(args)%2 != 0 {
			return "", fmt.Errorf("Switch: expected an even number of arguments, got %d", len(args))
		}
		var b strings.Builder
		b.WriteString("CASE")
		for i := 0; i < len(args); i += 2 {
			fmt.Fprintf(&b, " WHEN %s THEN %s", args[i], args[i+1])
		}
		b.WriteString(" END")
		return b.String(), nil
	},
	"choose": func(args []string) (string, error) {
		if err := argCount("Choose", args, 2, 64); err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "CASE %s", args[0])
		for i, v := range args[1:] {
			fmt.Fprintf(&b, " WHEN %d THEN %s", i+1, v)
		}
		b.WriteString(" END")
		return b.String(), nil
	},

	// String manipulation.
	"mid": func(args []string) (string, error) {
		if err := argCount("Mid", args, 2, 3); err != nil {
			return "", err
		}
		if len(args) == 2 {
			return fmt.Sprintf("SUBSTR(%s, %s)", args[0], args[1]), nil
		}
		return fmt.Sprintf("SUBSTR(%s, %s, %s)", args[0], args[1], args[2]), nil
	},
	"left": func(args []string) (string, error) {
		if err := argCount("Left", args, 2, 2); err != nil {
			return "", err
		}
		return fmt.Sprintf("LEFT(%s, %s)", args[0], args[1]), nil
	},
	"right": func(args []string) (string, error) {
		if err := argCount("Right", args, 2, 2); err != nil {
			return "", err
		}
		return fmt.Sprintf("RIGHT(%s, %s)", args[0], args[1]), nil
	},
	"len": func(args []string) (string, error) {
		if err := argCount("Len", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("LENGTH(%s)", args[0]), nil
	},
	"trim": func(args []string) (string, error) {
		if err := argCount("Trim", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("BTRIM(%s)", args[0]), nil
	},
	"ltrim": func(args []string) (string, error) {
		if err := argCount("LTrim", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("LTRIM(%s)", args[0]), nil
	},
	"rtrim": func(args []string) (string, error) {
		if err := argCount("RTrim", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("RTRIM(%s)", args[0]), nil
	},
	"ucase": func(args []string) (string, error) {
		if err := argCount("UCase", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("UPPER(%s)", args[0]), nil
	},
	"lcase": func(args []string) (string, error) {
		if err := argCount("LCase", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("LOWER(%s)", args[0]), nil
	},
	"instr": func(args []string) (string, error) {
		if err := argCount("InStr", args, 2, 3); err != nil {
			return "", err
		}
		if len(args) == 2 {
			return fmt.Sprintf("STRPOS(%s, %s)", args[0], args[1]), nil
		}
		// Three-argument form starts the search at an offset.
		start, s, sub := args[0], args[1], args[2]
		return fmt.Sprintf(
			"CASE WHEN STRPOS(SUBSTR(%s, %s), %s) = 0 THEN 0 ELSE STRPOS(SUBSTR(%s, %s), %s) + %s - 1 END",
			s, start, sub, s, start, sub, start), nil
	},
	"replace": func(args []string) (string, error) {
		if err := argCount("Replace", args, 3, 3); err != nil {
			return "", err
		}
		return fmt.Sprintf("REPLACE(%s, %s, %s)", args[0], args[1], args[2]), nil
	},
	"space": func(args []string) (string, error) {
		if err := argCount("Space", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("REPEAT(' ', %s)", args[0]), nil
	},
	"string": func(args []string) (string, error) {
		if err := argCount("String", args, 2, 2); err != nil {
			return "", err
		}
		return fmt.Sprintf("REPEAT(%s, %s)", args[1], args[0]), nil
	},
	"strreverse": func(args []string) (string, error) {
		if err := argCount("StrReverse", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("REVERSE(%s)", args[0]), nil
	},
	"chr": func(args []string) (string, error) {
		if err := argCount("Chr", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("CHR(%s)", args[0]), nil
	},
	"asc": func(args []string) (string, error) {
		if err := argCount("Asc", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("ASCII(%s)", args[0]), nil
	},

	// Numeric.
	"int": func(args []string) (string, error) {
		if err := argCount("Int", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("FLOOR(%s)", args[0]), nil
	},
	"fix": func(args []string) (string, error) {
		if err := argCount("Fix", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("TRUNC(%s)", args[0]), nil
	},
	"sgn": func(args []string) (string, error) {
		if err := argCount("Sgn", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("SIGN(%s)", args[0]), nil
	},
	"sqr": func(args []string) (string, error) {
		if err := argCount("Sqr", args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("SQRT(%s)", args[0]), nil
	},
	"rnd": func(args []string) (string, error) {
		if err := argCount("Rnd", args, 0, 1); err != nil {
			return "", err
		}
		return "RANDOM()", nil
	},

	// Type casts.
	"cint":  castTransform("CInt", "smallint"),
	"clng":  castTransform("CLng", "bigint"),
	"cdbl":  castTransform("CDbl", "double precision"),
	"csng":  castTransform("CSng", "real"),
	"ccur":  castTransform("CCur", "numeric(19,4)"),
	"cdate": castTransform("CDate", "timestamp"),
	"cstr":  castTransform("CStr", "text"),
	"cbool": castTransform("CBool", "boolean"),
	"val":   castTransform("Val", "double precision"),

	// Date and time.
	"date": func(args []string) (string, error) {
		if err := argCount("Date", args, 0, 0); err != nil {
			return "", err
		}
		return "CURRENT_DATE", nil
	},
	"now": func(args []string) (string, error) {
		if err := argCount("Now", args, 0, 0); err != nil {
			return "", err
		}
		return "NOW()", nil
	},
	"time": func(args []string) (string, error) {
		if err := argCount("Time", args, 0, 0); err != nil {
			return "", err
		}
		return "CURRENT_TIME", nil
	},
	"year":   extractTransform("Year", "YEAR"),
	"month":  extractTransform("Month", "MONTH"),
	"day":    extractTransform("Day", "DAY"),
	"hour":   extractTransform("Hour", "HOUR"),
	"minute": extractTransform("Minute", "MINUTE"),
	"second": extractTransform("Second", "SECOND"),
	"weekday": func(args []string) (string, error) {
		if err := argCount("Weekday", args, 1, 2); err != nil {
			return "", err
		}
		// Legacy weekday numbering is 1-based starting Sunday.
		return fmt.Sprintf("(EXTRACT(DOW FROM %s) + 1)", args[0]), nil
	},
	"datepart": func(args []string) (string, error) {
		if err := argCount("DatePart", args, 2, 4); err != nil {
			return "", err
		}
		code, err := unitCode(args[0])
		if err != nil {
			return "", err
		}
		u := intervalUnits[code]
		if code == "w" {
			return fmt.Sprintf("(EXTRACT(DOW FROM %s) + 1)", args[1]), nil
		}
		return fmt.Sprintf("EXTRACT(%s FROM %s)", u.Field, args[1]), nil
	},
	"dateadd": func(args []string) (string, error) {
		if err := argCount("DateAdd", args, 3, 3); err != nil {
			return "", err
		}
		code, err := unitCode(args[0])
		if err != nil {
			return "", err
		}
		u := intervalUnits[code]
		if u.Mult != 1 {
			return fmt.Sprintf("(%s + (%s) * %d * INTERVAL '1 %s')", args[2], args[1], u.Mult, u.Interval), nil
		}
		return fmt.Sprintf("(%s + (%s) * INTERVAL '1 %s')", args[2], args[1], u.Interval), nil
	},
	"datediff": func(args []string) (string, error) {
		if err := argCount("DateDiff", args, 3, 5); err != nil {
			return "", err
		}
		code, err := unitCode(args[0])
		if err != nil {
			return "", err
		}
		a, b := args[1], args[2]
		switch code {
		case "yyyy":
			return fmt.Sprintf("(EXTRACT(YEAR FROM %s) - EXTRACT(YEAR FROM %s))", b, a), nil
		case "m":
			return fmt.Sprintf(
				"((EXTRACT(YEAR FROM %s) - EXTRACT(YEAR FROM %s)) * 12 + EXTRACT(MONTH FROM %s) - EXTRACT(MONTH FROM %s))",
				b, a, b, a), nil
		case "q":
			return fmt.Sprintf(
				"(((EXTRACT(YEAR FROM %s) - EXTRACT(YEAR FROM %s)) * 12 + EXTRACT(MONTH FROM %s) - EXTRACT(MONTH FROM %s)) / 3)",
				b, a, b, a), nil
		case "d", "y":
			return fmt.Sprintf("((%s)::date - (%s)::date)", b, a), nil
		case "w", "ww":
			return fmt.Sprintf("(((%s)::date - (%s)::date) / 7)", b, a), nil
		case "h":
			return fmt.Sprintf("FLOOR(EXTRACT(EPOCH FROM (%s)::timestamp - (%s)::timestamp) / 3600)", b, a), nil
		case "n":
			return fmt.Sprintf("FLOOR(EXTRACT(EPOCH FROM (%s)::timestamp - (%s)::timestamp) / 60)", b, a), nil
		default: // "s"
			return fmt.Sprintf("FLOOR(EXTRACT(EPOCH FROM (%s)::timestamp - (%s)::timestamp))", b, a), nil
		}
	},
	"dateserial": func(args []string) (string, error) {
		if err := argCount("DateSerial", args, 3, 3); err != nil {
			return "", err
		}
		return fmt.Sprintf("MAKE_DATE(%s, %s, %s)", args[0], args[1], args[2]), nil
	},

	// Display formatting.
	"format": func(args []string) (string, error) {
		if err := argCount("Format", args, 1, 2); err != nil {
			return "", err
		}
		if len(args) == 1 {
			return fmt.Sprintf("CAST(%s AS text)", args[0]), nil
		}
		pattern, err := MapFormatPattern(args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("TO_CHAR(%s, '%s')", args[0], pattern), nil
	},
}

// castTransform builds a transform emitting CAST(x AS type).
func castTransform(name, pgType string) Transform {
	return func(args []string) (string, error) {
		if err := argCount(name, args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("CAST(%s AS %s)", args[0], pgType), nil
	}
}

// extractTransform builds a transform emitting EXTRACT(field FROM x).
func extractTransform(name, field string) Transform {
	return func(args []string) (string, error) {
		if err := argCount(name, args, 1, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("EXTRACT(%s FROM %s)", field, args[0]), nil
	}
}

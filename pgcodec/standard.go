package pgcodec

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

const (
	microsecondsPerSecond = 1000000
	microsecondsPerMinute = 60 * microsecondsPerSecond
	microsecondsPerHour   = 60 * microsecondsPerMinute
	microsecondsPerDay    = 24 * microsecondsPerHour
)

const (
	pgDateFormat        = "2006-01-02"
	pgTimeFormat        = "15:04:05.999999999"
	pgTimestampFormat   = "2006-01-02 15:04:05.999999999"
	pgTimestamptzFormat = "2006-01-02 15:04:05.999999999Z07:00"
)

// timestamptz is emitted with an hour-only offset (+02), an hour and minute
// offset (+05:30) or, for historical zones, seconds as well.
var timestamptzLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00:00",
	time.RFC3339Nano,
}

var timestampLayouts = []string{
	pgTimestampFormat,
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

var dateLayouts = []string{
	pgDateFormat,
	time.RFC3339Nano,
}

var errBadInterval = errors.New("bad interval format")

// decodeStandard parses the text of a standard type. Unrecognized type names
// are returned as string.
func decodeStandard(typeName, src string) (any, error) {
	v, err := parseStandard(typeName, src)
	if err != nil {
		return nil, &ConversionError{TypeName: typeName, Text: src, Err: err}
	}
	return v, nil
}

func parseStandard(typeName, src string) (any, error) {
	switch typeName {
	case "int2":
		n, err := strconv.ParseInt(src, 10, 16)
		return int16(n), err
	case "int4":
		n, err := strconv.ParseInt(src, 10, 32)
		return int32(n), err
	case "int8":
		return strconv.ParseInt(src, 10, 64)
	case "oid", "xid", "cid", "regclass", "regtype", "regproc":
		n, err := strconv.ParseUint(src, 10, 32)
		return uint32(n), err
	case "float4":
		n, err := strconv.ParseFloat(src, 32)
		return float32(n), err
	case "float8":
		return strconv.ParseFloat(src, 64)
	case "bool":
		return parseBool(src)
	case "numeric":
		return decimal.NewFromString(src)
	case "date":
		return parseTime(dateLayouts, src)
	case "timestamp":
		return parseTime(timestampLayouts, src)
	case "timestamptz":
		return parseTime(timestamptzLayouts, src)
	case "time":
		return time.Parse(pgTimeFormat, src)
	case "interval":
		return parseInterval(src)
	case "json", "jsonb":
		var v any
		err := json.Unmarshal([]byte(src), &v)
		return v, err
	case "uuid":
		return uuid.FromString(src)
	case "bytea":
		if strings.HasPrefix(src, `\x`) {
			return hex.DecodeString(src[2:])
		}
		return []byte(src), nil
	default:
		return src, nil
	}
}

func parseBool(src string) (bool, error) {
	switch src {
	case "t", "true", "TRUE", "1":
		return true, nil
	case "f", "false", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool %q", src)
}

func parseTime(layouts []string, src string) (time.Time, error) {
	var err error
	for _, layout := range layouts {
		var t time.Time
		t, err = time.Parse(layout, src)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// parseInterval parses the postgres interval output style: an optional
// "N day(s)" part followed by [-]HH:MM:SS[.ffffff]. Years and months have no
// fixed duration and are rejected.
func parseInterval(src string) (time.Duration, error) {
	var microseconds int64

	parts := strings.Fields(src)
	for i := 0; i < len(parts)-1; i += 2 {
		scalar, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return 0, errBadInterval
		}

		switch parts[i+1] {
		case "day", "days":
			microseconds += scalar * microsecondsPerDay
		case "year", "years", "mon", "mons":
			return 0, fmt.Errorf("interval with %s cannot be represented as a duration", parts[i+1])
		default:
			return 0, errBadInterval
		}
	}

	if len(parts)%2 == 1 {
		timeParts := strings.SplitN(parts[len(parts)-1], ":", 3)
		if len(timeParts) != 3 {
			return 0, errBadInterval
		}

		var negative bool
		if strings.HasPrefix(timeParts[0], "-") {
			negative = true
			timeParts[0] = timeParts[0][1:]
		} else {
			timeParts[0] = strings.TrimPrefix(timeParts[0], "+")
		}

		hours, err := strconv.ParseInt(timeParts[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad interval hour format: %s", timeParts[0])
		}

		minutes, err := strconv.ParseInt(timeParts[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad interval minute format: %s", timeParts[1])
		}

		secondParts := strings.SplitN(timeParts[2], ".", 2)

		seconds, err := strconv.ParseInt(secondParts[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad interval second format: %s", secondParts[0])
		}

		var uSeconds int64
		if len(secondParts) == 2 {
			if len(secondParts[1]) > 6 {
				return 0, fmt.Errorf("bad interval decimal format: %s", secondParts[1])
			}
			uSeconds, err = strconv.ParseInt(secondParts[1], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("bad interval decimal format: %s", secondParts[1])
			}

			for i := 0; i < 6-len(secondParts[1]); i++ {
				uSeconds *= 10
			}
		}

		timeMicroseconds := hours*microsecondsPerHour + minutes*microsecondsPerMinute + seconds*microsecondsPerSecond + uSeconds
		if negative {
			timeMicroseconds = -timeMicroseconds
		}
		microseconds += timeMicroseconds
	} else if len(parts) == 0 {
		return 0, errBadInterval
	}

	return time.Duration(microseconds) * time.Microsecond, nil
}

// formatInterval writes d as [-]HH:MM:SS[.ffffff]. Hours are not wrapped into
// days.
func formatInterval(d time.Duration) string {
	microseconds := d.Microseconds()

	var sb strings.Builder
	if microseconds < 0 {
		sb.WriteByte('-')
		microseconds = -microseconds
	}

	hours := microseconds / microsecondsPerHour
	microseconds -= hours * microsecondsPerHour
	minutes := microseconds / microsecondsPerMinute
	microseconds -= minutes * microsecondsPerMinute
	seconds := microseconds / microsecondsPerSecond
	microseconds -= seconds * microsecondsPerSecond

	fmt.Fprintf(&sb, "%02d:%02d:%02d", hours, minutes, seconds)
	if microseconds != 0 {
		fmt.Fprintf(&sb, ".%06d", microseconds)
	}
	return sb.String()
}

// encodeStandard formats a Go scalar as the text of the standard type
// typeName.
func encodeStandard(typeName string, v any) (string, error) {
	s, err := formatStandard(typeName, v)
	if err != nil {
		return "", &ConversionError{TypeName: typeName, Text: fmt.Sprint(v), Err: err}
	}
	return s, nil
}

func formatStandard(typeName string, v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "t", nil
		}
		return "f", nil
	case float32:
		return formatFloat(float64(v), 32), nil
	case float64:
		return formatFloat(v, 64), nil
	case decimal.Decimal:
		return v.String(), nil
	case uuid.UUID:
		return v.String(), nil
	case time.Duration:
		return formatInterval(v), nil
	case time.Time:
		switch typeName {
		case "date":
			return v.Format(pgDateFormat), nil
		case "time":
			return v.Format(pgTimeFormat), nil
		case "timestamp":
			return v.Format(pgTimestampFormat), nil
		default:
			return v.Format(pgTimestamptzFormat), nil
		}
	case []byte:
		if typeName == "bytea" {
			return `\x` + hex.EncodeToString(v), nil
		}
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}

	if typeName == "json" || typeName == "jsonb" {
		buf, err := json.Marshal(v)
		return string(buf), err
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return formatStandard(typeName, rv.Bool())
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float(), rv.Type().Bits()), nil
	}

	return "", fmt.Errorf("cannot encode %T", v)
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

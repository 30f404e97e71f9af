package instrumentation

import (
	"fmt"
	"time"
)

type summer interface{ Sum() int64 }

type int64Loader interface{ Load() int64 }
type int32Loader interface{ Load() int32 }
type uint64Loader interface{ Load() uint64 }
type uint32Loader interface{ Load() uint32 }
type boolLoader interface{ Load() bool }

// toInt64 coerces a declared item value to an int64 reading.
// Accumulators yield their sum, atomics their loaded value, booleans 1 or 0,
// integers themselves and floats are truncated.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("nil value")
	case error:
		return 0, x
	case summer:
		return x.Sum(), nil
	case int64Loader:
		return x.Load(), nil
	case int32Loader:
		return int64(x.Load()), nil
	case uint64Loader:
		return int64(x.Load()), nil
	case uint32Loader:
		return int64(x.Load()), nil
	case boolLoader:
		return boolToInt64(x.Load()), nil
	case bool:
		return boolToInt64(x), nil
	case time.Duration:
		return int64(x), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

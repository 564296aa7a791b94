package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexID - идентификатор из внешнего JSON. Витрины присылают ID
// то числом, то строкой, то null. Все, что не похоже на положительное
// число, превращается в 0 и дальше трактуется как "не выбрано"
type FlexID uint

func (f *FlexID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*f = 0
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	// "12.0" от JS-витрин тоже валиден
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
		*f = FlexID(uint(v))
		return nil
	}

	*f = 0
	return nil
}

func (f FlexID) UInt() uint {
	return uint(f)
}

func flexIDs(ids []FlexID) []uint {
	var out []uint
	for _, id := range ids {
		if id != 0 {
			out = append(out, uint(id))
		}
	}
	return out
}

package items

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Key addresses an item either by local UUID or by upstream id. In JSON
// it may be a string or a number.
type Key string

func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = Key(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item reference must be a string or a number")
	}
	*k = Key(n.String())
	return nil
}

func (k Key) parse() (id uuid.UUID, upstreamID int64, isUUID bool, ok bool) {
	if id, err := uuid.Parse(string(k)); err == nil {
		return id, 0, true, true
	}
	if n, err := strconv.ParseInt(string(k), 10, 64); err == nil && n > 0 {
		return uuid.Nil, n, false, true
	}
	return uuid.Nil, 0, false, false
}

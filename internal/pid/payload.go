package pid

// payload.go builds the handle value set sent to the Handle server (PUT api/handles/{handle})

const (
	urlIndex         = 1
	firstRecordIndex = 2
	adminIndex       = 100

	// adminPermissions grants the prefix owner the standard read/write/delete/admin rights
	adminPermissions = "011111110011"
	adminHandleIndex = 200
)

// Payload is the Handle server request body
type Payload struct {
	Values []Value `json:"values"`
}

// Value is a single handle value record
type Value struct {
	Index int       `json:"index"`
	Type  string    `json:"type"`
	Data  ValueData `json:"data"`
}

// ValueData carries the format and value of a handle value.
// Value is a string for the "string" format and an AdminValue for the "admin" format.
type ValueData struct {
	Format string `json:"format"`
	Value  any    `json:"value"`
}

// AdminValue is the HS_ADMIN value
type AdminValue struct {
	Handle      string `json:"handle"`
	Index       int    `json:"index"`
	Permissions string `json:"permissions"`
}

// BuildPayload assembles the value set for a handle: the target url at index 1,
// the records at index 2.. in the order supplied, and the HS_ADMIN record at index 100.
func BuildPayload(targetURL string, records []Record, prefix string) Payload {
	values := make([]Value, 0, len(records)+2)

	values = append(values, Value{
		Index: urlIndex,
		Type:  "URL",
		Data:  ValueData{Format: "string", Value: targetURL},
	})

	for i, rec := range records {
		values = append(values, Value{
			Index: firstRecordIndex + i,
			Type:  rec.Type,
			Data:  ValueData{Format: "string", Value: rec.Value},
		})
	}

	values = append(values, Value{
		Index: adminIndex,
		Type:  "HS_ADMIN",
		Data: ValueData{
			Format: "admin",
			Value: AdminValue{
				Handle:      "0.NA/" + prefix,
				Index:       adminHandleIndex,
				Permissions: adminPermissions,
			},
		},
	})

	return Payload{Values: values}
}

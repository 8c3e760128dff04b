package models

import "encoding/json"

// EntryIDField is the body key carrying the entry identifier
const EntryIDField = "_id"

// GenerateQRCodeRequest is the decoded POST /qrcode body. Values are kept raw
// so presence and type can be checked separately.
type GenerateQRCodeRequest map[string]json.RawMessage

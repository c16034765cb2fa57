package model

// Row is a single record keyed by column name
type Row map[string]interface{}

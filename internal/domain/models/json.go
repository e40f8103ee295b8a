package models

// JSONMap is the in-memory form of a JSONB object column.
type JSONMap map[string]interface{}

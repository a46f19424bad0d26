package querybuilder

// InsertRows holds one value tuple per inserted row
type InsertRows [][]interface{}

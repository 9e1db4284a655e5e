// Package reports renders flat tabular reports over products and users and
// archives them to object storage.
//
// Each Kind has exactly one generator. A Report renders as JSON
//
//	{"reportName": "Inventory Report", "generatedAt": "...", "data": [{...}]}
//
// or as CSV, where every field is double quoted and embedded quotes are
// doubled. WriteNaiveCSV keeps the older unescaped form.
//
// Exporter writes every kind as CSV to an Archive under
// reports/<yyyy>/<mm>/<dd>/<kind>-<timestamp>.csv. S3Archive is the
// production Archive.
package reports

// Package asn fetches announced IP prefixes for autonomous systems from
// public BGP data sources and exports them as plain-text block lists.
//
// Three sources are queried: the BGPView API, the RIPEstat API, and the
// bgp.tools table dump (cached locally because it is large and rarely
// changes). A source that fails contributes nothing; the remaining
// sources still answer. The merged result is the sorted union of every
// prefix any source announced for the AS.
//
// The package backs the `trapd asn` command, which turns remote IPs seen
// in capture logs into per-AS prefix files suitable for firewall block
// lists.
package asn

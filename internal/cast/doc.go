// Package cast records and replays shell sessions in the asciicast v2
// format.
//
// A cast file is one JSON header line followed by one JSON array per
// event:
//
//	{"version": 2, "width": 80, "height": 24, "timestamp": 1700000000}
//	[0.104, "o", "user@host:~$ "]
//	[1.52, "i", "ls\n"]
//	[1.534, "o", "ls\r\nREADME.md\r\nuser@host:~$ "]
//
// Files ending in .gz or .zst are compressed with gzip or zstd.
package cast

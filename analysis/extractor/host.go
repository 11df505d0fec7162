package extractor

import (
	"database/sql"

	"github.com/kali20gakki/msprof-sub029/analysis/dbreader"
	"github.com/kali20gakki/msprof-sub029/analysis/record"
)

func newGeHash(src Source) Extractor {
	return &feature[record.HashEntry]{
		name:  GeHash,
		src:   src,
		scope: hostScope,
		table: table{
			db:    "ge_hash.db",
			name:  "GeHashInfo",
			query: "SELECT hash_key, hash_value FROM GeHashInfo ORDER BY rowid",
		},
		scan: func(converter) dbreader.ScanFunc[record.HashEntry] {
			return func(rows *sql.Rows) (record.HashEntry, bool, error) {
				var e record.HashEntry
				if err := rows.Scan(&e.Key, &e.Value); err != nil {
					return e, false, err
				}
				return e, true, nil
			}
		},
	}
}

func newHostAPI(src Source) Extractor {
	return &feature[record.HostAPI]{
		name:  HostAPI,
		src:   src,
		scope: hostScope,
		table: table{
			db:   "api_event.db",
			name: "ApiData",
			query: "SELECT struct_type, id, level, thread_id, item_id, \"start\", \"end\", connection_id " +
				"FROM ApiData ORDER BY \"start\", thread_id, rowid",
		},
		scan: func(c converter) dbreader.ScanFunc[record.HostAPI] {
			return func(rows *sql.Rows) (record.HostAPI, bool, error) {
				var (
					a          record.HostAPI
					id, item   string
					start, end int64
				)
				if err := rows.Scan(&a.StructType, &id, &a.Level, &a.ThreadID, &item, &start, &end, &a.ConnectionID); err != nil {
					return a, false, err
				}
				a.Name = c.names.Resolve(id)
				if a.Name == "" {
					a.Name = c.names.Resolve(item)
				}
				var in bool
				a.StartNs, in = c.cycles(start)
				a.EndNs, _ = c.cycles(end)
				return a, in, nil
			}
		},
	}
}

func newMsprofTx(src Source) Extractor {
	return &feature[record.TxMark]{
		name:  MsprofTx,
		src:   src,
		scope: hostScope,
		table: table{
			db:   "msproftx.db",
			name: "MsprofTx",
			query: "SELECT pid, tid, category, event_type, start_time, end_time, message " +
				"FROM MsprofTx ORDER BY start_time, rowid",
		},
		scan: func(c converter) dbreader.ScanFunc[record.TxMark] {
			return func(rows *sql.Rows) (record.TxMark, bool, error) {
				var (
					m          record.TxMark
					start, end int64
				)
				if err := rows.Scan(&m.PID, &m.TID, &m.Category, &m.EventType, &start, &end, &m.Message); err != nil {
					return m, false, err
				}
				var in bool
				m.StartNs, in = c.cycles(start)
				m.EndNs = m.StartNs
				if end > start {
					m.EndNs, _ = c.cycles(end)
				}
				return m, in, nil
			}
		},
	}
}

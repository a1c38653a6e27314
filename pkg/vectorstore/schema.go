// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vectorstore

import "database/sql"

// ensureSchema creates the nodes table if it doesn't already exist. Rowid
// ordering (SQLite's implicit insertion-order primary key) is what gives
// query ties their "break by insertion order" semantics, per spec §4.7.
func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	external_id TEXT NOT NULL,
	text TEXT NOT NULL,
	metadata TEXT NOT NULL,
	vector BLOB NOT NULL,
	dimensions INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_external_id ON nodes (external_id);
`)
	return err
}

package database

// IP record queries
const (
	insertRecordQuery = `
		INSERT INTO ip_records (
			ip_address, user_id, user_agent, request_path,
			http_method, tag, source_header, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	recordColumns = `
		id, ip_address, user_id, user_agent, request_path,
		http_method, tag, source_header, created_at
	`

	selectRecordByIDQuery = `
		SELECT ` + recordColumns + `
		FROM ip_records
		WHERE id = ?
	`

	selectRecordsByAddressQuery = `
		SELECT ` + recordColumns + `
		FROM ip_records
		WHERE ip_address = ?
		ORDER BY created_at DESC
	`

	existsByAddressAndUserQuery = `
		SELECT EXISTS(
			SELECT 1 FROM ip_records
			WHERE ip_address = ? AND user_id = ?
		)
	`

	countRecordsQuery = `
		SELECT COUNT(*) FROM ip_records
	`

	countDistinctAddressesQuery = `
		SELECT COUNT(DISTINCT ip_address) FROM ip_records
	`

	countDistinctUsersQuery = `
		SELECT COUNT(DISTINCT user_id) FROM ip_records
		WHERE user_id IS NOT NULL
	`

	countRecordsSinceQuery = `
		SELECT COUNT(*) FROM ip_records
		WHERE created_at >= ?
	`

	frequentAddressesQuery = `
		SELECT ip_address, COUNT(*) AS cnt
		FROM ip_records
		GROUP BY ip_address
		ORDER BY cnt DESC
		LIMIT ?
	`

	recordTimeBoundsQuery = `
		SELECT MIN(created_at), MAX(created_at) FROM ip_records
	`

	userStatsQuery = `
		SELECT COUNT(*), COUNT(DISTINCT ip_address), MAX(created_at)
		FROM ip_records
		WHERE user_id = ?
	`

	deleteOlderThanQuery = `
		DELETE FROM ip_records
		WHERE created_at < ?
	`
)

// Package repo — слой хранения jobs в Postgres (pgx).
//
// JobRepo работает через интерфейс DBTX, поэтому принимает и
// *pgxpool.Pool, и транзакцию, и pgxmock в тестах.
//
// Схема управляется миграциями golang-migrate, встроенными в бинарь
// (пакет migrations): MigrateUp / MigrateDown.
package repo

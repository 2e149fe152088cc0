// Package cli реализует инструмент командной строки Hookflow.
//
// # Обзор
//
// CLI работает напрямую с очередью и Postgres: отдельного HTTP API
// у движка нет. Команды:
//   - enqueue: публикует WorkflowRunRequest как задание workflow.run
//   - jobs: list, show — просмотр записей о выполнении
//   - migrate: up, down — схема БД (встроенные миграции)
//
// # Ключевые компоненты
//
// ## Backend
//
// Открывает внешние зависимости лениво: команда jobs не подключается
// к очереди, enqueue не трогает Postgres. ConfigBackend строится
// из config.Config.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: hookflow jobs list --json | jq .
//
// ## Commands
//
// Каждая группа создаётся через фабричную функцию (NewJobsCmd и т.д.),
// принимающую backendFn и outputFn — замыкания для ленивого создания
// Backend и Output после парсинга PersistentFlags.
package cli

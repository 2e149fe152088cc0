// Package engine содержит логику подготовки действий workflow.
//
// Включает:
//   - resolver.go — подстановка {{path}} из payload триггера в конфигурацию
//   - action.go   — типизированные действия (SendEmail, SlackMessage, Webhook)
//     и их проверка при привязке
//
// Engine не выполняет сетевых вызовов: это задача пакета worker.
package engine

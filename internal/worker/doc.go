// Package worker выполняет workflow из очереди.
//
// # Обзор
//
// Worker — stateless компонент системы Hookflow. На каждую доставку
// сообщения workflow.run он:
//
//   - Создаёт job в статусе RUNNING
//   - Выполняет действия по одному, в порядке массива
//   - Переводит job в SUCCESS с результатом каждого действия
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди.
//
// # Ключевые компоненты
//
// ## Worker
//
// Создаётся через New(cfg Config) и запускается методом Start(ctx):
//
//	w := worker.New(worker.Config{
//	    Queue:       queue,
//	    Jobs:        repo.NewJobRepo(pool),
//	    Executors:   executors,
//	    ActionDelay: time.Second,
//	    Logger:      logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// ## Executors
//
// По одному executor'у на тип действия:
//   - EmailExecutor — письмо через Mailer (SMTP, go-mail)
//   - SlackExecutor — POST {"text"} в incoming webhook
//   - WebhookExecutor — HTTP-запрос с payload в теле
//
// Диспетчеризация — type switch по engine.Action, реестра нет.
//
// # Ошибки
//
// Пакет различает два уровня ошибок:
//   - Ошибка действия — попадает в ActionResult (ok=false), run продолжается
//   - Ошибка уровня run — job становится FAILED, ошибка уходит в очередь
//
// Повторная доставка создаёт новый job. Ранее выполненные действия
// при этом выполняются снова.
package worker

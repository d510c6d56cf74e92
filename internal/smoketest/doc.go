// Package smoketest содержит smoke-тесты системной целостности wsus-dbmaint.
//
// Проверяется, что все команды обслуживания зарегистрированы вместе с
// устаревшими именами, и что каждая команда в режиме plan-only отдаёт
// валидный JSON без обращения к SQL Server и службам.
//
// Unit-тесты логики находятся в handler_test.go каждого пакета обработчика.
package smoketest

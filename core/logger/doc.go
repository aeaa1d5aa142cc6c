// Package logger records shell session events as newline delimited JSON and
// summarizes recorded logs.
package logger

// Package main hosts the harvest CLI.
//
// The cobra command tree resolves configuration and logging once, then hands
// off to the internal packages: run drives a full extraction pass, plan shows
// what a pass would do, inspect and export read a written artifact back.
package main

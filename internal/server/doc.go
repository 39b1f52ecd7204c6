// Package server implements the HTTP server using Echo framework.
//
// Routes: conversion API (multipart upload per conversion unit), single-use
// download retrieval, health probes, Prometheus metrics. Handlers return
// structured errors to the errors middleware; they never write error bodies
// themselves.
package server

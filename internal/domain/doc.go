// Package domain contains the core concepts of the ocr2docx service: OCR job
// statuses, extracted text and the error taxonomy shared by intake, the OCR
// adapter and the request orchestrator.
// Keep this package free of transport (HTTP) and infrastructure (Azure/Redis) concerns.
package domain

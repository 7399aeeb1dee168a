package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "HRMS Approval API",
        "description": "Multi-level approval workflow engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh, password management"},
        {"name": "Approvals", "description": "Approval chains, step decisions, bypass"},
        {"name": "Policies", "description": "Approval policy administration"},
        {"name": "Delegations", "description": "Approver delegation lifecycle"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens rotated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Refresh token invalid"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "Refresh token revoked"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "responses": {
                    "204": {"description": "Password changed"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "Profile", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approvals/chains": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Initialize an approval chain",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InitializeChainRequest"}}
                ],
                "responses": {
                    "201": {"description": "Chain created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "No approval required"},
                    "409": {"description": "Chain already exists"}
                }
            }
        },
        "/approvals/chains/{module}/{entityId}": {
            "get": {
                "tags": ["Approvals"],
                "summary": "List approval chain steps",
                "parameters": [
                    {"name": "module", "in": "path", "required": true, "type": "string"},
                    {"name": "entityId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Steps", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Approvals"],
                "summary": "Delete an approval chain",
                "responses": {
                    "204": {"description": "Chain removed"},
                    "403": {"description": "Admin only"}
                }
            }
        },
        "/approvals/chains/{module}/{entityId}/summary": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Approval chain status summary",
                "responses": {
                    "200": {"description": "Summary", "schema": {"$ref": "#/definitions/ChainSummary"}}
                }
            }
        },
        "/approvals/chains/{module}/{entityId}/current": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Lowest pending step of the chain",
                "responses": {
                    "200": {"description": "Step"},
                    "404": {"description": "No pending step"}
                }
            }
        },
        "/approvals/chains/{module}/{entityId}/exists": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Check whether a chain exists",
                "responses": {
                    "200": {"description": "Existence flag"}
                }
            }
        },
        "/approvals/chains/{module}/{entityId}/bypass": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Approve all remaining pending steps",
                "responses": {
                    "200": {"description": "Chain summary after bypass"},
                    "403": {"description": "Admin only"}
                }
            }
        },
        "/approvals/chains/{module}/{entityId}/export": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Export chain history as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Document"}
                }
            }
        },
        "/approvals/steps/{id}/decision": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Approve or reject a step",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideStepRequest"}}
                ],
                "responses": {
                    "200": {"description": "Decision outcome"},
                    "403": {"description": "Not authorized for this step"},
                    "409": {"description": "Step already processed"}
                }
            }
        },
        "/approvals/steps/{id}/authorization": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Advisory authorization check for a step",
                "responses": {
                    "200": {"description": "Authorization result"}
                }
            }
        },
        "/approvals/pending": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Pending steps the caller can act on",
                "responses": {
                    "200": {"description": "Steps"}
                }
            }
        },
        "/approval-policies": {
            "get": {
                "tags": ["Policies"],
                "summary": "List approval policies",
                "responses": {"200": {"description": "Policies"}}
            },
            "post": {
                "tags": ["Policies"],
                "summary": "Create an approval policy",
                "responses": {"201": {"description": "Policy created"}}
            }
        },
        "/approval-policies/{id}": {
            "get": {
                "tags": ["Policies"],
                "summary": "Get an approval policy",
                "responses": {"200": {"description": "Policy"}}
            },
            "put": {
                "tags": ["Policies"],
                "summary": "Replace an approval policy",
                "responses": {"200": {"description": "Policy updated"}}
            },
            "delete": {
                "tags": ["Policies"],
                "summary": "Delete an approval policy",
                "responses": {"204": {"description": "Policy removed"}}
            }
        },
        "/approval-policies/resolve": {
            "post": {
                "tags": ["Policies"],
                "summary": "Preview policy resolution",
                "responses": {"200": {"description": "Matching policy or none"}}
            }
        },
        "/delegations": {
            "get": {
                "tags": ["Delegations"],
                "summary": "List delegations granted by the caller",
                "responses": {"200": {"description": "Delegations"}}
            },
            "post": {
                "tags": ["Delegations"],
                "summary": "Delegate the caller's approval role",
                "responses": {"201": {"description": "Delegation created"}}
            }
        },
        "/delegations/{id}": {
            "delete": {
                "tags": ["Delegations"],
                "summary": "Revoke a delegation",
                "responses": {"204": {"description": "Delegation revoked"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "InitializeChainRequest": {
            "type": "object",
            "properties": {
                "module": {"type": "string", "enum": ["LEAVE_REQUEST", "PURCHASE_REQUEST", "ASSET_REQUEST"]},
                "entity_id": {"type": "string"},
                "amount": {"type": "number"},
                "days": {"type": "integer"}
            }
        },
        "DecideStepRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["APPROVE", "REJECT"]},
                "notes": {"type": "string"}
            }
        },
        "ChainSummary": {
            "type": "object",
            "properties": {
                "total_steps": {"type": "integer"},
                "completed_steps": {"type": "integer"},
                "current_step": {"type": "integer"},
                "status": {"type": "string", "enum": ["NOT_STARTED", "PENDING", "APPROVED", "REJECTED"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

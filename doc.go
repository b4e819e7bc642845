// Package auth is the authentication and authorization core of the CPAG
// graduate research monitoring system: credential issuance and verification,
// Google ID-token sign-in, reCAPTCHA gating, the invitation-based account
// activation flow, and the role/domain policy middleware used by every
// protected route.
//
// Only institutional accounts are admitted: staff on @buksu.edu.ph and
// graduate students on @student.buksu.edu.ph. The student domain is bound to
// the graduate student role and carries a mandatory, unique student ID.
package auth

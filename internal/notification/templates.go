package notification

import (
	"fmt"
	"time"
)

const otpSubject = "Your OTP Verification Code for Secure Login"

// OTPEmail builds the email carrying a verification code.
func OTPEmail(to, code string, ttl time.Duration) Message {
	body := fmt.Sprintf("Dear User,\n\n"+
		"We received a request to verify your email. Please use the following One-Time Password (OTP) to complete the verification process:\n\n"+
		"Your OTP Code: %s\n\n"+
		"This OTP is valid for %s. Do not share it with anyone.\n\n"+
		"If you didn't request this, you can safely ignore this email.\n", code, humanMinutes(ttl))
	return Message{Channel: ChannelEmail, Kind: KindOTP, Destination: to, Subject: otpSubject, Body: body}
}

// OTPSMS builds the text message carrying a verification code.
func OTPSMS(to, name, code string, ttl time.Duration) Message {
	body := fmt.Sprintf("Dear %s, your OTP code is %s. It is valid for %s. Do not share it with anyone.", name, code, humanMinutes(ttl))
	return Message{Channel: ChannelSMS, Kind: KindOTP, Destination: to, Subject: otpSubject, Body: body}
}

// LoanApprovalEmail builds the alert sent to a farmer once a bank approves a loan.
func LoanApprovalEmail(to, farmer, bank string) Message {
	body := fmt.Sprintf("Dear %s,\n\n"+
		"We are pleased to inform you that your loan application has been successfully approved. "+
		"The approved amount will be credited to your registered bank account shortly.\n\n"+
		"If you have any questions, please contact our support team.\n\n"+
		"Best regards,\n%s", farmer, bank)
	return Message{Channel: ChannelEmail, Kind: KindLoanApproval, Destination: to, Subject: "Loan Approval Confirmation", Body: body}
}

func humanMinutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

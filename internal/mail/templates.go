package mail

import "fmt"

const wrapper = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">%s</div>`

func button(url, label string) string {
	return fmt.Sprintf(`<p style="text-align: center;"><a href="%s" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: #fff; text-decoration: none; border-radius: 5px;">%s</a></p>`, url, label)
}

// Verification builds the email-address confirmation message.
func Verification(to, name, verifyURL string) Message {
	body := fmt.Sprintf(`<h2>Verify your email address</h2>
<p>Hi %s,</p>
<p>Thanks for signing up. Confirm your email address to activate your account:</p>
%s
<p>This link expires in 24 hours.</p>`, name, button(verifyURL, "Verify Email"))
	return Message{To: to, Subject: "Verify Your Email Address", HTML: fmt.Sprintf(wrapper, body)}
}

// CompanyInvitation builds the invite-employee message.
func CompanyInvitation(to, name, companyName, acceptURL string) Message {
	body := fmt.Sprintf(`<h2>You're invited to join %s</h2>
<p>Hi %s,</p>
<p>You have been invited to join %s. Accept the invitation to create your account:</p>
%s
<p>This invitation expires in 7 days.</p>`, companyName, name, companyName, button(acceptURL, "Accept Invitation"))
	return Message{To: to, Subject: fmt.Sprintf("Invitation to join %s", companyName), HTML: fmt.Sprintf(wrapper, body)}
}

// ChannelInvitation builds the invite-to-channel message.
func ChannelInvitation(to, name, channelName, acceptURL string) Message {
	body := fmt.Sprintf(`<h2>You've been invited to #%s</h2>
<p>Hi %s,</p>
<p>You have been invited to join the channel <strong>%s</strong>:</p>
%s
<p>This invitation expires in 7 days.</p>`, channelName, name, channelName, button(acceptURL, "Join Channel"))
	return Message{To: to, Subject: fmt.Sprintf("You've been invited to join %s", channelName), HTML: fmt.Sprintf(wrapper, body)}
}

// Credentials builds the generated-password message sent when an
// invitation is accepted without choosing a password.
func Credentials(to, name, email, password, loginURL string) Message {
	body := fmt.Sprintf(`<h2>Your account is ready</h2>
<p>Hi %s,</p>
<p>Your account has been created. Use these credentials to log in:</p>
<p>Email: <strong>%s</strong><br>Password: <strong>%s</strong></p>
%s
<p>Please change your password after your first login.</p>`, name, email, password, button(loginURL, "Log In"))
	return Message{To: to, Subject: "Your Login Credentials", HTML: fmt.Sprintf(wrapper, body)}
}

// PasswordReset builds the reset-link message.
func PasswordReset(to, resetURL string) Message {
	body := fmt.Sprintf(`<h2>Reset your password</h2>
<p>We received a request to reset the password for this address. If this was you, follow the link below:</p>
%s
<p>If you did not request a reset, you can ignore this email.</p>`, button(resetURL, "Reset Password"))
	return Message{To: to, Subject: "Reset Your Password", HTML: fmt.Sprintf(wrapper, body)}
}

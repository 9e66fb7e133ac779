package services

// verificationEmailHTML is a branded template for sending verification codes.
// Format verbs: code, magic link URL, magic link URL (display), year.
const verificationEmailHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Your Verification Code</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f8f9fa; margin: 0; padding: 20px; }
  .container { max-width: 500px; margin: auto; background: #ffffff; border: 1px solid #e9ecef; border-radius: 8px; overflow: hidden; }
  .header { background-color: #1d5da8; color: white; padding: 20px; text-align: center; }
  .header h1 { margin: 0; font-size: 24px; }
  .content { padding: 30px; text-align: center; }
  .code { font-size: 36px; font-weight: bold; letter-spacing: 8px; color: #1d5da8; background-color: #f1f3f5; padding: 15px 20px; border-radius: 5px; display: inline-block; margin: 20px 0; }
  .button { display: inline-block; background-color: #1d5da8; color: #ffffff; padding: 12px 24px; border-radius: 5px; text-decoration: none; font-weight: bold; margin: 10px 0 20px; }
  .footer { background-color: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #6c757d; }
  p { margin-bottom: 1em; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Your Verification Code</h1>
    </div>
    <div class="content">
      <p>Please use the following code to sign in to your customer portal. This code will expire in 5 minutes.</p>
      <div class="code">%s</div>
      <p>Or sign in with one click:</p>
      <a class="button" href="%s">Sign In</a>
      <p style="font-size: 12px; color: #6c757d;">%s</p>
      <p>If you did not request this code, you can safely ignore this email.</p>
    </div>
    <div class="footer">
      © %d Economy Plumbing. All rights reserved.
    </div>
  </div>
</body>
</html>`

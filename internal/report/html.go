package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
)

// htmlTemplate renders a standalone page that asks for the password and
// decrypts the embedded envelope in the browser. The password itself is
// never written into the page.
var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Health Report - Password Protected</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
.container { max-width: 1000px; margin: 0 auto; background: white; padding: 30px; border-radius: 8px; }
.password-prompt { text-align: center; padding: 50px; border: 2px dashed #ccc; border-radius: 8px; margin: 50px 0; }
.password-input { padding: 12px; font-size: 16px; border: 2px solid #ddd; border-radius: 4px; margin: 10px; width: 200px; }
.decrypt-btn { padding: 12px 24px; font-size: 16px; background-color: #007cba; color: white; border: none; border-radius: 4px; cursor: pointer; }
.report-data { display: none; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background-color: #f8f9fa; }
.summary { background-color: #e8f4f8; padding: 20px; border-radius: 8px; margin: 20px 0; }
.error { color: #d32f2f; margin: 10px 0; }
</style>
</head>
<body>
<div class="container">
  <h1>Health Report</h1>
  <p>Food and health tracking data, exported {{.ExportDate}}</p>

  <div id="passwordPrompt" class="password-prompt">
    <h2>Password Required</h2>
    <p>Enter the password provided by the patient:</p>
    <input type="password" id="passwordInput" class="password-input" placeholder="Enter password">
    <button id="decryptButton" class="decrypt-btn">Decrypt Report</button>
    <div id="errorMsg" class="error"></div>
  </div>

  <div id="reportData" class="report-data">
    <div class="summary">
      <h3>Summary</h3>
      <p><strong>Total Entries:</strong> <span id="totalEntries"></span></p>
      <p><strong>Sick Episodes:</strong> <span id="sickEpisodes"></span></p>
      <p><strong>Date Range:</strong> <span id="dateRange"></span></p>
      <p><strong>Export Date:</strong> <span id="exportDate"></span></p>
    </div>
    <table>
      <thead>
        <tr>
          <th>Date</th><th>Food Item</th><th>Meal Type</th><th>Calories</th><th>Blood Pressure</th>
          <th>Felt Sick</th><th>Bowel Score (1-7)</th><th>Time Recorded</th><th>Combination</th>
        </tr>
      </thead>
      <tbody id="dataTable"></tbody>
    </table>
  </div>
</div>
<script>
const envelope = {{.Envelope}};
const iterations = {{.Iterations}};
const saltSize = {{.SaltSize}};
const nonceSize = {{.NonceSize}};

async function decryptReport(password) {
  const raw = Uint8Array.from(atob(envelope), function (c) { return c.charCodeAt(0); });
  const salt = raw.slice(0, saltSize);
  const iv = raw.slice(saltSize, saltSize + nonceSize);
  const data = raw.slice(saltSize + nonceSize);
  const base = await crypto.subtle.importKey("raw", new TextEncoder().encode(password), "PBKDF2", false, ["deriveKey"]);
  const key = await crypto.subtle.deriveKey(
    { name: "PBKDF2", salt: salt, iterations: iterations, hash: "SHA-256" },
    base, { name: "AES-GCM", length: 256 }, false, ["decrypt"]);
  const plain = await crypto.subtle.decrypt({ name: "AES-GCM", iv: iv }, key, data);
  return JSON.parse(new TextDecoder().decode(plain));
}

function showReport(data) {
  document.getElementById("totalEntries").textContent = data.summary.totalEntries;
  document.getElementById("sickEpisodes").textContent = data.summary.sickEpisodes;
  document.getElementById("dateRange").textContent = data.summary.dateRange;
  document.getElementById("exportDate").textContent = data.summary.exportDate;
  const body = document.getElementById("dataTable");
  const columns = ["date", "food", "mealType", "calories", "bloodPressure", "feltSick", "bowelScore", "timestamp", "verdict"];
  data.csvData.forEach(function (entry) {
    const row = body.insertRow();
    columns.forEach(function (col, i) { row.insertCell(i).textContent = entry[col]; });
  });
  document.getElementById("passwordPrompt").style.display = "none";
  document.getElementById("reportData").style.display = "block";
}

async function onDecrypt() {
  const input = document.getElementById("passwordInput");
  const errorMsg = document.getElementById("errorMsg");
  try {
    showReport(await decryptReport(input.value));
  } catch (e) {
    errorMsg.textContent = "Incorrect password. Please try again.";
    input.value = "";
    input.focus();
  }
}

document.getElementById("decryptButton").addEventListener("click", onDecrypt);
document.getElementById("passwordInput").addEventListener("keypress", function (e) {
  if (e.key === "Enter") { onDecrypt(); }
});
</script>
</body>
</html>
`))

type htmlData struct {
	Envelope   string
	ExportDate string
	Iterations int
	SaltSize   int
	NonceSize  int
}

// Seal encrypts the report's JSON form under password.
func Seal(rep *Report, password string) (string, error) {
	payload, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return Encrypt(payload, password)
}

// Open reverses Seal.
func Open(envelope, password string) (*Report, error) {
	payload, err := Decrypt(envelope, password)
	if err != nil {
		return nil, err
	}
	var rep Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}

// RenderHTML encrypts the report and renders the self-decrypting page.
func RenderHTML(rep *Report, password string) ([]byte, error) {
	envelope, err := Seal(rep, password)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = htmlTemplate.Execute(&buf, htmlData{
		Envelope:   envelope,
		ExportDate: rep.Summary.ExportDate,
		Iterations: Iterations,
		SaltSize:   SaltSize,
		NonceSize:  NonceSize,
	})
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

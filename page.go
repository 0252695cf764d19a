package webchat

// widgetPage is the embeddable chat page served at "/". It is presentational
// glue only: all markdown handling happens server-side in Render, and the
// page inserts the returned HTML into the assistant bubble as-is.
const widgetPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>Chat</title>
<style>
:root{
  --bg:#0f1117;--panel:#161822;--border:#252836;--accent:#6c5ce7;
  --text:#e8e6f0;--muted:#8b8a97;--code-bg:#0d0f18;
}
*{box-sizing:border-box;margin:0;padding:0}
html,body{height:100%}
body{font-family:system-ui,-apple-system,sans-serif;background:var(--bg);color:var(--text);display:flex;flex-direction:column}
#messages{flex:1;overflow-y:auto;padding:24px;display:flex;flex-direction:column;gap:14px}
.msg{max-width:76%;padding:11px 15px;border-radius:14px;line-height:1.6;font-size:14px}
.msg.user{align-self:flex-end;background:var(--accent);color:#fff;white-space:pre-wrap}
.msg.assistant{align-self:flex-start;background:var(--panel);border:1px solid var(--border)}
.msg.assistant p{margin:6px 0}
.msg.assistant pre{background:var(--code-bg);padding:12px;border-radius:8px;overflow-x:auto;margin:8px 0;border:1px solid var(--border)}
.msg.assistant code{background:var(--code-bg);padding:1px 5px;border-radius:4px;font-size:13px;font-family:ui-monospace,Consolas,monospace}
.msg.assistant pre code{padding:0;background:none}
.msg.assistant blockquote{border-left:3px solid var(--accent);padding-left:10px;color:var(--muted);margin:6px 0}
.msg.assistant table.chat-table{border-collapse:collapse;margin:8px 0;width:100%}
.msg.assistant table.chat-table th,.msg.assistant table.chat-table td{border:1px solid var(--border);padding:6px 10px;text-align:left;font-size:13px}
.msg.assistant table.chat-table th{background:var(--code-bg)}
#input-area{display:flex;gap:10px;padding:14px 24px 18px;background:var(--panel);border-top:1px solid var(--border)}
#input{flex:1;padding:10px 14px;border:1px solid var(--border);border-radius:10px;background:var(--bg);color:var(--text);font-size:14px;font-family:inherit;outline:none;resize:none}
#input:focus{border-color:var(--accent)}
#send{padding:0 18px;background:var(--accent);color:#fff;border:none;border-radius:10px;font-size:14px;cursor:pointer}
#send:disabled{opacity:.4;cursor:not-allowed}
</style>
</head>
<body>
<div id="messages"></div>
<div id="input-area">
  <textarea id="input" rows="1" placeholder="Type a message..."></textarea>
  <button id="send">Send</button>
</div>
<script>
const msgsEl=document.getElementById("messages"),
      input=document.getElementById("input"),
      btn=document.getElementById("send");
let busy=false;
let sessionId=localStorage.getItem("webchat_session")||"";
function esc(s){return s.replace(/&/g,"&amp;").replace(/</g,"&lt;").replace(/>/g,"&gt;")}
function addMsg(role,html){
  const div=document.createElement("div");
  div.className="msg "+role;
  div.innerHTML=html;
  msgsEl.appendChild(div);
  msgsEl.scrollTop=msgsEl.scrollHeight;
}
async function loadHistory(){
  if(!sessionId)return;
  try{
    const r=await fetch("/chat/history?session_id="+encodeURIComponent(sessionId));
    if(!r.ok)return;
    for(const m of await r.json()){
      addMsg(m.role,m.role==="assistant"?m.html:esc(m.body));
    }
  }catch(e){}
}
async function send(){
  const m=input.value.trim();
  if(!m||busy)return;
  busy=true;btn.disabled=true;input.value="";
  addMsg("user",esc(m));
  try{
    const r=await fetch("/chat/send",{method:"POST",headers:{"Content-Type":"application/json"},body:JSON.stringify({message:m,session_id:sessionId})});
    if(!r.ok)throw new Error(r.statusText);
    const d=await r.json();
    sessionId=d.session_id;
    localStorage.setItem("webchat_session",sessionId);
    addMsg("assistant",d.html);
  }catch(e){
    addMsg("assistant","Something went wrong: "+esc(e.message));
  }
  busy=false;btn.disabled=false;input.focus();
}
btn.onclick=send;
input.onkeydown=e=>{if(e.key==="Enter"&&!e.shiftKey){e.preventDefault();send()}};
loadHistory();
input.focus();
</script>
</body>
</html>`
